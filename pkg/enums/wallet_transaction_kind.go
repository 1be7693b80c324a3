package enums

import "fmt"

// WalletTransactionKind categorizes a wallet ledger entry.
type WalletTransactionKind string

const (
	WalletTransactionDeposit    WalletTransactionKind = "deposit"
	WalletTransactionPurchase   WalletTransactionKind = "purchase"
	WalletTransactionRefund     WalletTransactionKind = "refund"
	WalletTransactionAdjustment WalletTransactionKind = "adjustment"
)

var validWalletTransactionKinds = []WalletTransactionKind{
	WalletTransactionDeposit,
	WalletTransactionPurchase,
	WalletTransactionRefund,
	WalletTransactionAdjustment,
}

// String implements fmt.Stringer.
func (w WalletTransactionKind) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletTransactionKind.
func (w WalletTransactionKind) IsValid() bool {
	for _, candidate := range validWalletTransactionKinds {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsCredit reports whether entries of this kind increase the balance.
func (w WalletTransactionKind) IsCredit() bool {
	return w == WalletTransactionDeposit || w == WalletTransactionRefund
}

// ParseWalletTransactionKind converts raw input into a WalletTransactionKind.
func ParseWalletTransactionKind(value string) (WalletTransactionKind, error) {
	for _, candidate := range validWalletTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction kind %q", value)
}
