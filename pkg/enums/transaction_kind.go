package enums

import "fmt"

// TransactionKind maps to the kind column on stock_transactions.
type TransactionKind string

const (
	TransactionKindWithdraw      TransactionKind = "withdraw"
	TransactionKindReturn        TransactionKind = "return"
	TransactionKindBorrowReserve TransactionKind = "borrow_reserve"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindWithdraw,
	TransactionKindReturn,
	TransactionKindBorrowReserve,
}

// IsValid reports whether the value matches a canonical transaction kind.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
