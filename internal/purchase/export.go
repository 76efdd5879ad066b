package purchase

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var statementColumns = []string{
	"id", "kind", "farm_id", "bond_id", "amount", "mode",
	"total_cost_usd", "status", "failure_code",
	"approval_tx_hash", "purchase_tx_hash", "created_at", "confirmed_at",
}

// WriteStatementCSV renders the investor's attempt history as a CSV
// statement, one row per attempt in the order given.
func WriteStatementCSV(w io.Writer, attempts []Attempt) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(statementColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range attempts {
		if err := writer.Write(statementRow(&attempts[i])); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func statementRow(a *Attempt) []string {
	return []string{
		a.ID.String(),
		string(a.Kind),
		strconv.FormatUint(a.FarmID, 10),
		formatOptionalUint(a.BondID),
		strconv.FormatUint(a.Amount, 10),
		a.Mode,
		strconv.FormatUint(a.TotalCostUSD, 10),
		string(a.Status),
		a.FailureCode,
		formatOptionalString(a.ApprovalTxHash),
		formatOptionalString(a.PurchaseTxHash),
		a.CreatedAt.Format(time.RFC3339),
		formatOptionalTime(a.ConfirmedAt),
	}
}

func formatOptionalUint(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}

func formatOptionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}
