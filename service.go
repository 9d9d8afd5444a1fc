package tably

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// UpdatePayload is the body of every create and update request:
// the complete current value set of the record, keyed by field id.
// The server contract has no field-level delta — edits always ship
// the whole record.
type UpdatePayload struct {
	Values map[string]interface{} `json:"values"`
}

func NewUpdatePayload() UpdatePayload {
	return UpdatePayload{Values: make(map[string]interface{})}
}

// Set installs the value for one field, overwriting any prior entry.
// A nil value clears the field.
func (p UpdatePayload) Set(fieldID int64, v interface{}) {
	p.Values[strconv.FormatInt(fieldID, 10)] = v
}

// FullPayload builds the complete value set a record currently holds,
// in the native shape each field's slot dictates.
func FullPayload(rec Record, fields []Field) UpdatePayload {
	byID := fieldIndex(fields)
	p := NewUpdatePayload()

	for i := range rec.Values {
		f, ok := byID[rec.Values[i].FieldID]
		if !ok {
			continue
		}

		p.Set(f.ID, nativeValue(f, &rec.Values[i]))
	}

	return p
}

// RecordService is the backend surface the engine consumes. All
// collaborators outside the sync core (auth, navigation, import) sit
// behind their own services and share none of this state.
type RecordService interface {
	ListFields(ctx context.Context, tableID int64) ([]Field, error)
	ListRecords(ctx context.Context, tableID int64, params QueryParams) ([]Record, error)
	CreateRecord(ctx context.Context, tableID int64, payload UpdatePayload) (Record, error)
	UpdateRecord(ctx context.Context, recordID int64, payload UpdatePayload) (Record, error)
	DeleteRecord(ctx context.Context, recordID int64) error
	ListViews(ctx context.Context, tableID int64) ([]View, error)
}

// RecordUpdater is the slice of RecordService the drag reconciler
// needs.
type RecordUpdater interface {
	UpdateRecord(ctx context.Context, recordID int64, payload UpdatePayload) (Record, error)
}

// HTTPService talks to the backend REST API.
type HTTPService struct {
	baseURL string
	token   string
	client  *http.Client
	log     *slog.Logger
}

func NewHTTPService(baseURL, token string, client *http.Client, log *slog.Logger) *HTTPService {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}

	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		log:     log,
	}
}

func (s *HTTPService) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "could not encode request body")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "could not build request")
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return errors.Wrapf(ErrRequestFailed, "%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.log.Warn("request rejected",
			"method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)
		return errors.Wrapf(ErrRequestFailed, "%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(ErrRequestFailed, "%s %s: could not decode response: %v", method, path, err)
	}

	return nil
}

func (s *HTTPService) ListFields(ctx context.Context, tableID int64) ([]Field, error) {
	var fields []Field
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/tables/%d/fields", tableID), nil, nil, &fields); err != nil {
		return nil, err
	}

	return fields, nil
}

func (s *HTTPService) ListRecords(ctx context.Context, tableID int64, params QueryParams) ([]Record, error) {
	var records []Record
	path := fmt.Sprintf("/tables/%d/records", tableID)
	if err := s.do(ctx, http.MethodGet, path, params.Values(), nil, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (s *HTTPService) CreateRecord(ctx context.Context, tableID int64, payload UpdatePayload) (Record, error) {
	var rec Record
	path := fmt.Sprintf("/tables/%d/records", tableID)
	if err := s.do(ctx, http.MethodPost, path, nil, payload, &rec); err != nil {
		return Record{}, err
	}

	return rec, nil
}

func (s *HTTPService) UpdateRecord(ctx context.Context, recordID int64, payload UpdatePayload) (Record, error) {
	var rec Record
	path := fmt.Sprintf("/records/%d", recordID)
	if err := s.do(ctx, http.MethodPut, path, nil, payload, &rec); err != nil {
		return Record{}, err
	}

	return rec, nil
}

func (s *HTTPService) DeleteRecord(ctx context.Context, recordID int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/records/%d", recordID), nil, nil, nil)
}

func (s *HTTPService) ListViews(ctx context.Context, tableID int64) ([]View, error) {
	var views []View
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/tables/%d/views", tableID), nil, nil, &views); err != nil {
		return nil, err
	}

	return views, nil
}
