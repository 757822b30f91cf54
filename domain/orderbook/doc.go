// Package orderbook implements the per-market resting order book for binary
// YES/NO contracts.
//
// Every order is normalized onto a single YES-denominated ladder pair: buy
// YES and sell NO rest as bids, sell YES and buy NO rest as asks. Each ladder
// is a red-black tree of FIFO price levels kept in arrival order. Each order
// also carries a process-wide sequence number taken when it is constructed.
//
// The book never matches. It flags crosses to listeners and exposes cleanup
// primitives for the execution collaborator that does the matching.
package orderbook
