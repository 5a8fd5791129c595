package booking

import "fmt"

// LedgerValidation partitions a member's contracts for one required amount.
// The caller picks which sufficient contract to draw from.
type LedgerValidation struct {
	Required     int64
	Unit         LedgerUnit
	Sufficient   []LedgerEntry
	Insufficient []LedgerEntry
	Expired      []LedgerEntry
}

// MaxAvailable is the largest usable balance, or zero.
func (validation LedgerValidation) MaxAvailable() int64 {
	var maxBalance int64
	for _, entries := range [][]LedgerEntry{validation.Sufficient, validation.Insufficient} {
		for _, entry := range entries {
			if entry.Balance > maxBalance {
				maxBalance = entry.Balance
			}
		}
	}
	return maxBalance
}

// classifyLedger filters entries by scope and expiry, then splits them by sufficiency.
// Expired entries are reported but never counted as usable.
func classifyLedger(entries []LedgerEntry, scope LedgerScope, required int64, asOf Date) (LedgerValidation, error) {
	validation := LedgerValidation{Required: required, Unit: scope.Unit}
	if len(entries) == 0 {
		return validation, ErrNoContracts
	}
	inScope := 0
	for _, entry := range entries {
		if !entry.Matches(scope) {
			continue
		}
		inScope++
		switch {
		case entry.ExpiredOn(asOf):
			validation.Expired = append(validation.Expired, entry)
		case entry.Balance >= required:
			validation.Sufficient = append(validation.Sufficient, entry)
		default:
			validation.Insufficient = append(validation.Insufficient, entry)
		}
	}
	if inScope == 0 {
		return validation, fmt.Errorf("%w: %s %s", ErrNoMatchingContracts, scope.Kind, scope.Unit)
	}
	if len(validation.Sufficient) == 0 && len(validation.Insufficient) == 0 {
		return validation, ErrContractsExpired
	}
	if len(validation.Sufficient) == 0 {
		return validation, InsufficientBalanceError{
			Required:     required,
			MaxAvailable: validation.MaxAvailable(),
			Unit:         scope.Unit,
		}
	}
	return validation, nil
}

// checkContract re-validates the single contract a commit will draw from.
func checkContract(entry LedgerEntry, required int64, asOf Date) error {
	if entry.ExpiredOn(asOf) {
		return fmt.Errorf("%w: contract %s expired on %s", ErrContractsExpired, entry.ContractID, entry.ExpiryDate)
	}
	if entry.Balance < required {
		return InsufficientBalanceError{Required: required, MaxAvailable: entry.Balance, Unit: entry.Unit}
	}
	return nil
}
