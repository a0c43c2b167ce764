package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/billcheck/internal/completion"
	"github.com/gyeh/billcheck/internal/decode"
	"github.com/gyeh/billcheck/internal/model"
	"github.com/gyeh/billcheck/internal/narrative"
	"github.com/gyeh/billcheck/internal/pivot"
	"github.com/gyeh/billcheck/internal/reconcile"
	"github.com/gyeh/billcheck/internal/store"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 20 << 20

// Reconciler runs bill reconciliations.
type Reconciler interface {
	ReconcileFor(ctx context.Context, scope reconcile.Scope, rawText string) (*reconcile.Result, error)
	ReconcileCodes(ctx context.Context, scope reconcile.Scope, codes []string, billed map[string]decimal.Decimal) (*reconcile.Result, error)
}

// PriceSearcher lists price records and hospitals.
type PriceSearcher interface {
	QueryPrices(ctx context.Context, hospital string, codes []string) ([]model.PriceRecord, error)
	Search(ctx context.Context, hospital string, codes []string, limit int) ([]model.PriceRecord, error)
	Hospitals(ctx context.Context) ([]store.Hospital, error)
}

// Describer explains codes and answers preventative-care lookups.
type Describer interface {
	Describe(ctx context.Context, code string) (string, error)
	IsPreventative(ctx context.Context, code string) (bool, error)
}

// TextDecoder turns an uploaded file into text.
type TextDecoder interface {
	Text(ctx context.Context, path string, kind decode.Kind) (string, error)
}

// Handlers holds the services behind the HTTP API.
type Handlers struct {
	Reconciler Reconciler
	Prices     PriceSearcher
	Describer  Describer
	Completer  completion.Completer
	Decoder    TextDecoder

	// Hospital resolves the hospital of a request, applying the default.
	Hospital func(requested string) string
	// Thresholds nil uses pivot.DefaultThresholds.
	Thresholds *pivot.Thresholds

	// ExcludePublicPayers is the default when a request omits
	// exclude_public_payers.
	ExcludePublicPayers bool

	// Ping checks the price store for /healthz; nil skips the check.
	Ping func(ctx context.Context) error
	Log  zerolog.Logger
}

func (h *Handlers) hospital(r *http.Request) string {
	requested := r.URL.Query().Get("hospital")
	if h.Hospital == nil {
		return requested
	}
	return h.Hospital(requested)
}

// excludePublic reads the exclude_public_payers parameter from the query or
// form. Nil means the request left it unset.
func excludePublic(r *http.Request) (*bool, error) {
	s := r.FormValue("exclude_public_payers")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("exclude_public_payers must be a boolean, got %q", s)
	}
	return &v, nil
}

// Healthz reports liveness and whether the price store answers.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "store": "ok"}
	status := http.StatusOK
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			h.Log.Warn().Err(err).Msg("health check: store ping failed")
			resp["status"] = "degraded"
			resp["store"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// ListHospitals returns the hospitals with an active price list.
func (h *Handlers) ListHospitals(w http.ResponseWriter, r *http.Request) {
	hs, err := h.Prices.Hospitals(r.Context())
	if err != nil {
		writeServiceError(w, h.Log, errors.Join(reconcile.ErrStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

type searchResponse struct {
	Hospital string         `json:"hospital"`
	Sort     pivot.SortSpec `json:"sort"`
	// Limit is the row cap applied to Records. Truncated reports that the
	// cap was reached; the pivot and totals are computed before the cap
	// whenever codes are given.
	Limit           int                 `json:"limit"`
	Truncated       bool                `json:"truncated"`
	Records         []model.PriceRecord `json:"records"`
	Pivot           []pivot.Group       `json:"pivot_results"`
	TotalStandard   decimal.Decimal     `json:"total_standard"`
	TotalNegotiated decimal.Decimal     `json:"total_negotiated"`
}

// Search lists a hospital's price records for the requested codes with the
// per-(code, setting) pivot. Query: hospital, codes, setting, sort, dir,
// toggle, limit, exclude_public_payers.
//
// toggle names a column clicked on the current sort: the same column flips
// direction, another column starts ascending. The pivot covers every
// matching record even when the listing is capped by limit; without codes
// it covers the listed rows only.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec, err := pivot.ParseSortSpec(q.Get("sort"), q.Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t := q.Get("toggle"); t != "" {
		clicked, err := pivot.ParseSortSpec(t, "")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		spec = spec.Toggle(clicked.Column)
	}
	limit := store.DefaultSearchLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n > 0 {
			limit = n
		}
	}
	override, err := excludePublic(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exclude := h.ExcludePublicPayers
	if override != nil {
		exclude = *override
	}

	hospital := h.hospital(r)
	codes := splitCodes(q.Get("codes"))
	records, err := h.Prices.Search(r.Context(), hospital, codes, limit)
	if err != nil {
		writeServiceError(w, h.Log, errors.Join(reconcile.ErrStoreUnavailable, err))
		return
	}

	pivotRecords := records
	if len(codes) > 0 {
		if pivotRecords, err = h.Prices.QueryPrices(r.Context(), hospital, codes); err != nil {
			writeServiceError(w, h.Log, errors.Join(reconcile.ErrStoreUnavailable, err))
			return
		}
	}
	groups := pivot.Aggregate(pivotRecords, nil, pivot.Options{
		Thresholds:          h.Thresholds,
		Setting:             q.Get("setting"),
		Hospital:            hospital,
		ExcludePublicPayers: exclude,
	})
	std, neg := pivot.Totals(groups)
	spec.Apply(records)

	writeJSON(w, http.StatusOK, searchResponse{
		Hospital:        hospital,
		Sort:            spec,
		Limit:           limit,
		Truncated:       len(records) >= limit,
		Records:         records,
		Pivot:           groups,
		TotalStandard:   std,
		TotalNegotiated: neg,
	})
}

// Compare reconciles an explicit code list. Query: hospital, codes,
// exclude_public_payers and billed, a JSON object of code to amount.
func (h *Handlers) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	codes := splitCodes(q.Get("codes"))
	if len(codes) == 0 {
		writeError(w, http.StatusBadRequest, "codes is required")
		return
	}

	billed := map[string]decimal.Decimal{}
	if raw := q.Get("billed"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &billed); err != nil {
			writeError(w, http.StatusBadRequest, "billed must be a JSON object of code to amount")
			return
		}
	}

	exclude, err := excludePublic(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scope := reconcile.Scope{Hospital: h.hospital(r), ExcludePublicPayers: exclude}
	res, err := h.Reconciler.ReconcileCodes(r.Context(), scope, codes, billed)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Upload reconciles an uploaded bill. The multipart field "file" carries the
// document; "hospital" and "exclude_public_payers" are optional.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	exclude, err := excludePublic(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := decode.KindOf(header.Filename)

	tmp, err := os.CreateTemp("", "bill-*"+filepath.Ext(header.Filename))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	text, err := h.Decoder.Text(r.Context(), tmp.Name(), kind)
	if err != nil {
		h.Log.Warn().Err(err).Str("file", header.Filename).Msg("decode failed")
		writeError(w, http.StatusUnprocessableEntity, "could not read text from the uploaded file")
		return
	}

	hospital := r.FormValue("hospital")
	if h.Hospital != nil {
		hospital = h.Hospital(hospital)
	}
	res, err := h.Reconciler.ReconcileFor(r.Context(), reconcile.Scope{Hospital: hospital, ExcludePublicPayers: exclude}, text)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type describeRequest struct {
	Code string `json:"code"`
}

type describeResponse struct {
	Code         string `json:"code"`
	Summary      string `json:"summary"`
	Preventative bool   `json:"preventative"`
}

// DescribeCode returns a plain-language description of a code.
func (h *Handlers) DescribeCode(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[describeRequest](w, r)
	if !ok {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Missing 'code' in request body")
		return
	}

	summary, err := h.Describer.Describe(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	prev, err := h.Describer.IsPreventative(r.Context(), req.Code)
	if err != nil {
		h.Log.Warn().Err(err).Str("code", req.Code).Msg("preventative lookup failed")
	}
	writeJSON(w, http.StatusOK, describeResponse{Code: req.Code, Summary: summary, Preventative: prev})
}

type letterRequest struct {
	Charges []pivot.FlaggedCharge   `json:"charges"`
	Notes   map[string]string       `json:"notes"`
	Details narrative.LetterDetails `json:"details"`
}

// Letter drafts a clarification letter for the disputable charges. Notes
// are attached per code before selection.
func (h *Handlers) Letter(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[letterRequest](w, r)
	if !ok {
		return
	}
	pivot.AttachNotes(req.Charges, req.Notes)

	letter, err := narrative.Letter(r.Context(), h.Completer, req.Charges, req.Details)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"letter": letter})
}

type summaryRequest struct {
	Codes   []string              `json:"codes"`
	Charges []pivot.FlaggedCharge `json:"charges"`
}

// Summary explains a bill's codes in plain language.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[summaryRequest](w, r)
	if !ok {
		return
	}
	summary, err := narrative.Summary(r.Context(), h.Completer, req.Codes, req.Charges)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}
