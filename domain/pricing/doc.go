// Package pricing folds the four logical order shapes of a binary YES/NO
// contract (buy/sell × yes/no) into buy-only form.
//
// A contract settles at 100¢, so selling one side at X¢ is economically the
// same position as buying the other side at 100−X¢. Everything here is pure
// and stateless.
package pricing
