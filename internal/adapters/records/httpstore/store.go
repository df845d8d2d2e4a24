// Package httpstore implementa records.Store contra un record store externo
// que expone una API JSON.
//
//	POST /records
//	GET  /records/{id}
//	POST /records/{id}/void
//	GET  /patients/{patientID}/records?types=&from=&to=&q=&limit=&offset=
package httpstore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"health-consent/internal/domain/records"
	"health-consent/internal/platform/httpclient"

	"github.com/pkg/errors"
)

const APIKeyHeader = "X-Api-Key"

type Store struct {
	client *httpclient.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) (*Store, error) {
	c, err := httpclient.NewWithBaseURL(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if c.BaseURL == "" {
		return nil, errors.New("httpstore: base url required")
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		c.Headers[APIKeyHeader] = key
	}
	return &Store{client: c}, nil
}

// NewWithClient se usa en tests con un httpclient ya armado.
func NewWithClient(c *httpclient.Client) *Store {
	return &Store{client: c}
}

type wireRecord struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patient_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
	Title      string    `json:"title,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	AuthorType string    `json:"author_type"`
	AuthorID   string    `json:"author_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
}

type listResponse struct {
	Items []wireRecord `json:"items"`
}

func (s *Store) Create(ctx context.Context, rec records.Record) error {
	if err := s.client.DoJSON(ctx, http.MethodPost, "/records", toWire(rec), nil); err != nil {
		return errors.Wrap(err, "httpstore: create record")
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (records.Record, error) {
	var out wireRecord
	err := s.client.DoJSON(ctx, http.MethodGet, "/records/"+url.PathEscape(id), nil, &out)
	if err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return records.Record{}, records.ErrRecordNotFound
		}
		return records.Record{}, errors.Wrap(err, "httpstore: get record")
	}
	return fromWire(out), nil
}

func (s *Store) ListByPatient(ctx context.Context, patientID string, filter records.ListFilter) ([]records.Record, error) {
	q := url.Values{}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		q.Set("types", strings.Join(types, ","))
	}
	if filter.From != nil {
		q.Set("from", filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		q.Set("to", filter.To.UTC().Format(time.RFC3339))
	}
	if v := strings.TrimSpace(filter.Query); v != "" {
		q.Set("q", v)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	path := "/patients/" + url.PathEscape(patientID) + "/records"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var out listResponse
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return []records.Record{}, nil
		}
		return nil, errors.Wrap(err, "httpstore: list records")
	}

	items := make([]records.Record, 0, len(out.Items))
	for _, w := range out.Items {
		items = append(items, fromWire(w))
	}
	return items, nil
}

func (s *Store) Void(ctx context.Context, id string) error {
	err := s.client.DoJSON(ctx, http.MethodPost, "/records/"+url.PathEscape(id)+"/void", nil, nil)
	if err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return records.ErrRecordNotFound
		}
		return errors.Wrap(err, "httpstore: void record")
	}
	return nil
}

func toWire(rec records.Record) wireRecord {
	return wireRecord{
		ID:         rec.ID,
		PatientID:  rec.PatientID,
		Type:       string(rec.Type),
		OccurredAt: rec.OccurredAt.UTC(),
		RecordedAt: rec.RecordedAt.UTC(),
		Title:      rec.Title,
		Notes:      rec.Notes,
		AuthorType: string(rec.Author.Type),
		AuthorID:   rec.Author.ID,
		SessionID:  rec.SessionID,
		Source:     string(rec.Source),
		Status:     string(rec.Status),
	}
}

func fromWire(w wireRecord) records.Record {
	return records.Record{
		ID:         w.ID,
		PatientID:  w.PatientID,
		Type:       records.RecordType(w.Type),
		OccurredAt: w.OccurredAt,
		RecordedAt: w.RecordedAt,
		Title:      w.Title,
		Notes:      w.Notes,
		Author:     records.Author{Type: records.AuthorType(w.AuthorType), ID: w.AuthorID},
		SessionID:  w.SessionID,
		Source:     records.Source(w.Source),
		Status:     records.Status(w.Status),
	}
}
