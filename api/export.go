/*
export.go - CSV export for payroll

PURPOSE:
  Streams the per-user balance sheet for one month as CSV, the format the
  payroll office imports. Headers are in Dutch to match their template.
*/
package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/urenwerk/balance-engine/engine"
)

// ExportBalancesCSV exports the monthly balance per active user.
// GET /api/export/balances.csv?month=6&year=2026&contract_type=fulltime
func (h *Handler) ExportBalancesCSV(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	policy := h.policyFor(r)

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, h.Location)
	period := engine.Period{Start: start, End: start.AddDate(0, 1, 0)}

	ctx := r.Context()
	users, err := h.Store.ActiveUsers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=urenbalans-%04d-%02d.csv", year, month))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{
		"Medewerker", "Verwacht", "Gewerkt", "Overuren", "Tekort",
		"Compensatie opgebouwd", "Compensatie opgenomen",
		"Weekend", "Avond", "Nacht", "Feestdag", "Ongeldige registraties",
	})

	for _, userID := range users {
		entries, err := h.Store.EntriesInRange(ctx, userID, period.Start, period.End)
		if err != nil {
			// Headers are already sent; log via the row rather than failing
			// the whole export.
			cw.Write([]string{string(userID), "FOUT", err.Error()})
			continue
		}
		b := engine.AggregateBalance(userID, engine.ClassifyAll(entries, policy), policy, period)
		cw.Write([]string{
			string(userID),
			b.ExpectedHours.Format(),
			b.ActualHours.Format(),
			b.OvertimeHours.Format(),
			b.ShortageHours.Format(),
			b.CompensationHours.Format(),
			b.UsedCompensationHours.Format(),
			b.WeekendHours.Format(),
			b.EveningHours.Format(),
			b.NightHours.Format(),
			b.HolidayHours.Format(),
			strconv.Itoa(b.InvalidEntries),
		})
	}
}
