package pricing

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	MinPrice = 1
	MaxPrice = 99
	// Payout is the settlement value of a winning contract, in cents.
	Payout = 100
)

var (
	ErrInvalidPrice = errors.New("invalid price")
	ErrInvalidInput = errors.New("invalid input")
)

type Side uint8
type Action uint8

const (
	Yes Side = iota + 1
	No
)

const (
	Buy Action = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

func (s Side) Valid() bool { return s == Yes || s == No }

// Opposite returns the complementary side.
func (s Side) Opposite() Side {
	if s == Yes {
		return No
	}
	return Yes
}

func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

func (a Action) Valid() bool { return a == Buy || a == Sell }

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return Yes, nil
	case "no":
		return No, nil
	}
	return 0, errors.Wrapf(ErrInvalidInput, "side %q", s)
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, errors.Wrapf(ErrInvalidInput, "action %q", s)
}

// ValidatePrice rejects anything outside [MinPrice, MaxPrice]. Prices are
// never clamped.
func ValidatePrice(price int) error {
	if price < MinPrice || price > MaxPrice {
		return errors.Wrapf(ErrInvalidPrice, "price must be between %d and %d cents, got %d", MinPrice, MaxPrice, price)
	}
	return nil
}

// ConvertedOrder is the buy-only form of a logical order. Action is always Buy.
type ConvertedOrder struct {
	Side         Side
	Action       Action
	Price        int
	WasConverted bool
}

// Describe renders the conversion for logs, e.g. "sell yes @ 70¢ → buy no @ 30¢".
func (c ConvertedOrder) Describe(side Side, action Action, price int) string {
	if !c.WasConverted {
		return fmt.Sprintf("%s %s @ %d¢", action, side, price)
	}
	return fmt.Sprintf("%s %s @ %d¢ → %s %s @ %d¢", action, side, price, c.Action, c.Side, c.Price)
}

// ToBuyOnly converts any order to buy-only form:
//
//	buy  X @ p → buy X @ p
//	sell yes @ p → buy no @ 100−p
//	sell no  @ p → buy yes @ 100−p
func ToBuyOnly(side Side, action Action, price int) (ConvertedOrder, error) {
	if err := ValidatePrice(price); err != nil {
		return ConvertedOrder{}, err
	}
	if !side.Valid() {
		return ConvertedOrder{}, errors.Wrapf(ErrInvalidInput, "side %d", side)
	}
	switch action {
	case Buy:
		return ConvertedOrder{Side: side, Action: Buy, Price: price}, nil
	case Sell:
		return ConvertedOrder{Side: side.Opposite(), Action: Buy, Price: Payout - price, WasConverted: true}, nil
	}
	return ConvertedOrder{}, errors.Wrapf(ErrInvalidInput, "action %d", action)
}

// FromRestrictedProtocol converts an order from a protocol that can only
// express the YES perspective: "buy" is buy yes, "sell" becomes buy no at the
// complementary price.
func FromRestrictedProtocol(token string, price int) (ConvertedOrder, error) {
	if err := ValidatePrice(price); err != nil {
		return ConvertedOrder{}, err
	}
	switch token {
	case "buy":
		return ConvertedOrder{Side: Yes, Action: Buy, Price: price}, nil
	case "sell":
		return ConvertedOrder{Side: No, Action: Buy, Price: Payout - price, WasConverted: true}, nil
	}
	return ConvertedOrder{}, errors.Wrapf(ErrInvalidInput, "protocol action %q", token)
}

// DisplayPrice renders a resting buy-NO price as the equivalent sell-YES ask.
// DisplayPrice(DisplayPrice(p)) == p.
func DisplayPrice(buyNoPrice int) (int, error) {
	if err := ValidatePrice(buyNoPrice); err != nil {
		return 0, err
	}
	return Payout - buyNoPrice, nil
}

// Crosses reports whether a YES bid and a NO bid together pay more than the
// settlement value. A sum of exactly 100 is an equilibrium, not a cross.
func Crosses(yesBuyPrice, noBuyPrice int) bool {
	return yesBuyPrice+noBuyPrice > Payout
}
