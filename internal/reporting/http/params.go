package reportinghttp

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/reporting"
)

const dateLayout = "2006-01-02"

type periodParams struct {
	CompanyID string `query:"company_id" validate:"required,numeric"`
	From      string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	View      string `query:"view" validate:"omitempty,oneof=detailed summary"`
}

type stockParams struct {
	CompanyID  string `query:"company_id" validate:"required,numeric"`
	FiscalYear string `query:"fiscal_year" validate:"omitempty,numeric,len=4"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		return fields
	}
	fields["general"] = err.Error()
	return fields
}

func (h *Handler) parsePeriod(r *http.Request) (reporting.PeriodQuery, map[string]string) {
	query := r.URL.Query()
	params := periodParams{
		CompanyID: strings.TrimSpace(query.Get("company_id")),
		From:      strings.TrimSpace(query.Get("from")),
		To:        strings.TrimSpace(query.Get("to")),
		View:      strings.TrimSpace(query.Get("view")),
	}
	if err := h.validate.Struct(params); err != nil {
		return reporting.PeriodQuery{}, fieldErrors(err)
	}
	companyID, err := strconv.ParseInt(params.CompanyID, 10, 64)
	if err != nil || companyID <= 0 {
		return reporting.PeriodQuery{}, map[string]string{"company_id": "gt"}
	}

	cal := h.service.Calendar()
	to := h.now().UTC().Truncate(24 * time.Hour)
	if params.To != "" {
		to, _ = time.Parse(dateLayout, params.To)
	}
	from, _ := cal.Bounds(cal.FiscalYear(to), time.UTC)
	if params.From != "" {
		from, _ = time.Parse(dateLayout, params.From)
	}
	if from.After(to) {
		return reporting.PeriodQuery{}, map[string]string{"from": "ltefield=to"}
	}
	return reporting.PeriodQuery{
		CompanyID: companyID,
		From:      from,
		To:        to,
		View:      ledger.ParseViewMode(params.View),
	}, nil
}

func (h *Handler) parseStock(r *http.Request) (int64, int, map[string]string) {
	query := r.URL.Query()
	params := stockParams{
		CompanyID:  strings.TrimSpace(query.Get("company_id")),
		FiscalYear: strings.TrimSpace(query.Get("fiscal_year")),
	}
	if err := h.validate.Struct(params); err != nil {
		return 0, 0, fieldErrors(err)
	}
	companyID, err := strconv.ParseInt(params.CompanyID, 10, 64)
	if err != nil || companyID <= 0 {
		return 0, 0, map[string]string{"company_id": "gt"}
	}
	cal := h.service.Calendar()
	fy := cal.FiscalYear(h.now())
	if params.FiscalYear != "" {
		fy, _ = strconv.Atoi(params.FiscalYear)
	}
	return companyID, fy, nil
}

func parseGroupID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	return id, err == nil
}
