// Package service is the order-entry boundary around one market's book.
//
// It validates requests, applies the buy-only conversion, assigns order ids
// and runs the periodic snapshot job. Transports (gRPC, HTTP) call into it
// and never touch the book directly.
package service
