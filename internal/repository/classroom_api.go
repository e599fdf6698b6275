package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

type ctxKey int

const (
	authTokenKey ctxKey = iota
	requestIDKey
)

// WithAuthToken attaches the caller's bearer token for forwarding upstream.
func WithAuthToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, authTokenKey, token)
}

// AuthToken returns the bearer token attached to ctx, if any.
func AuthToken(ctx context.Context) string {
	token, _ := ctx.Value(authTokenKey).(string)
	return token
}

// WithRequestID attaches the inbound request id for forwarding upstream.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// apiEnvelope is the response wrapper of the classroom backend.
type apiEnvelope struct {
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

// rawScorePage keeps items raw so a non-array value can be told apart from a
// decoding error inside an item.
type rawScorePage struct {
	Items      json.RawMessage `json:"items"`
	NextCursor int64           `json:"nextCursor"`
	HasNext    bool            `json:"hasNext"`
}

// ClassroomAPI talks to the classroom REST backend.
type ClassroomAPI struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClassroomAPI constructs the client. A nil http client gets the timeout.
func NewClassroomAPI(baseURL string, client *http.Client, timeout time.Duration, logger *zap.Logger) *ClassroomAPI {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

// FetchScorePage requests one cursor page of score records.
func (a *ClassroomAPI) FetchScorePage(ctx context.Context, q models.ScorePageQuery) (*models.ScorePage, error) {
	params := url.Values{}
	params.Set("cursor", strconv.FormatInt(q.Cursor, 10))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))
	params.Set("classroomId", q.ClassroomID)
	if q.StudentID != "" {
		params.Set("studentId", q.StudentID)
	}

	result, err := a.get(ctx, "/score/get-list-score", params)
	if err != nil {
		return nil, err
	}

	var raw rawScorePage
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, malformed(fmt.Errorf("decode score page: %w", err))
	}
	if !isJSONArray(raw.Items) {
		return nil, malformed(errors.New("score page items is not an array"))
	}
	page := &models.ScorePage{NextCursor: raw.NextCursor, HasNext: raw.HasNext}
	if err := json.Unmarshal(raw.Items, &page.Items); err != nil {
		return nil, malformed(fmt.Errorf("decode score items: %w", err))
	}
	return page, nil
}

// ListClassrooms returns the first page of classrooms visible to the caller.
func (a *ClassroomAPI) ListClassrooms(ctx context.Context, size int) ([]models.Classroom, error) {
	params := url.Values{}
	params.Set("classroomId", "-999")
	params.Set("cursor", "0")
	params.Set("page", "0")
	params.Set("size", strconv.Itoa(size))

	var classrooms []models.Classroom
	if err := a.getList(ctx, "/score/get-classroom", params, &classrooms); err != nil {
		return nil, err
	}
	return classrooms, nil
}

// ListStudents returns the roster of a classroom.
func (a *ClassroomAPI) ListStudents(ctx context.Context, classroomID string) ([]models.UserProfile, error) {
	params := url.Values{}
	params.Set("classroomId", classroomID)

	var students []models.UserProfile
	if err := a.getList(ctx, "/score/get-list-student", params, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// StudentScores returns every score of a student across classrooms.
func (a *ClassroomAPI) StudentScores(ctx context.Context, username string) ([]models.ScoreRecord, error) {
	params := url.Values{}
	params.Set("studentUsername", username)

	var records []models.ScoreRecord
	if err := a.getList(ctx, "/score/get-student-score", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// getList decodes an array result; a null result is an empty list.
func (a *ClassroomAPI) getList(ctx context.Context, path string, params url.Values, dest interface{}) error {
	result, err := a.get(ctx, path, params)
	if err != nil {
		return err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil
	}
	if !isJSONArray(result) {
		return malformed(fmt.Errorf("%s result is not an array", path))
	}
	if err := json.Unmarshal(result, dest); err != nil {
		return malformed(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

// get performs the request and returns the envelope's result member.
func (a *ClassroomAPI) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	endpoint := a.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if token := AuthToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, _ := ctx.Value(requestIDKey).(string); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.Warn("classroom api request failed", zap.String("path", path), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrNetworkFailure.Code, appErrors.ErrNetworkFailure.Status, appErrors.ErrNetworkFailure.Message)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNetworkFailure.Code, appErrors.ErrNetworkFailure.Status, "failed to read score source response")
	}
	a.logger.Debug("classroom api request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var envelope apiEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, appErrors.Wrap(fmt.Errorf("%s returned %d", path, resp.StatusCode),
			appErrors.ErrNetworkFailure.Code, appErrors.ErrNetworkFailure.Status, appErrors.ErrNetworkFailure.Message)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, appErrors.Upstream(resp.StatusCode, envelope.Message)
	}

	if decodeErr != nil {
		return nil, malformed(fmt.Errorf("decode %s envelope: %w", path, decodeErr))
	}
	if len(envelope.Result) == 0 {
		return nil, malformed(fmt.Errorf("%s response has no result", path))
	}
	return envelope.Result, nil
}

func malformed(err error) error {
	return appErrors.Wrap(err, appErrors.ErrMalformedResponse.Code, appErrors.ErrMalformedResponse.Status, appErrors.ErrMalformedResponse.Message)
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
