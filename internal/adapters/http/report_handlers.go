package httpadapter

import (
	"fmt"
	"net/http"
)

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	report, err := rt.deps.Reports.Compose(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) exportReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	report, err := rt.deps.Reports.Compose(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	workbook, err := BuildReportWorkbook(report)
	if err != nil {
		writeError(w, err)
		return
	}
	defer workbook.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "inspection-"+report.InspectionID+".xlsx"))
	if err := workbook.Write(w); err != nil {
		rt.deps.Logger.Error("report_export_write_failed", "inspection_id", report.InspectionID, "error", err)
	}
}
