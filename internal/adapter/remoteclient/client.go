// Package remoteclient implements the Remote Client (C4) over plain
// net/http: the remote backend is a private, non-standardized contract
// (spec.md §6), so there is no SDK to wrap, matching how the teacher's own
// outbound integrations talk stdlib HTTP directly rather than via a
// generated client.
package remoteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// Client is the net/http-backed port.RemoteClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (HOST_REMOTE_URL).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

var _ port.RemoteClient = (*Client)(nil)

func (c *Client) do(ctx context.Context, method, path, authToken string, body any, timeout time.Duration) (*http.Response, []byte, error) {
	if timeout <= 0 {
		timeout = port.DefaultRemoteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, nil, &port.RemoteBadResponseError{Op: method + " " + path, Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, &port.RemoteNetworkError{Op: method + " " + path, Err: err}
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, &port.RemoteTimeoutError{Op: method + " " + path}
		}
		return nil, nil, &port.RemoteNetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, &port.RemoteBadResponseError{Op: method + " " + path, Err: err}
	}
	return resp, respBody, nil
}

// NextIDs requests the next (uid, student_id) pair from the remote
// allocator (spec.md §6: GET /students/next-ids).
func (c *Client) NextIDs(ctx context.Context, authToken string) (port.NextIDs, error) {
	op := "next_ids"
	resp, body, err := c.do(ctx, http.MethodGet, "/students/next-ids", authToken, nil, 0)
	if err != nil {
		return port.NextIDs{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return port.NextIDs{}, &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		UID       int    `json:"uid"`
		StudentID string `json:"student_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return port.NextIDs{}, &port.RemoteBadResponseError{Op: op, Err: err}
	}
	return port.NextIDs{UID: out.UID, StudentID: out.StudentID}, nil
}

// CreateStudent posts a full student payload (spec.md §6: POST /students/).
// A body naming "blacklist" on a non-2xx response surfaces as a policy
// rejection; the enrollment orchestrator reacts by cleaning up every device.
func (c *Client) CreateStudent(ctx context.Context, authToken string, payload map[string]any) error {
	op := "create_student"
	resp, body, err := c.do(ctx, http.MethodPost, "/students/", authToken, payload, 0)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}
	if strings.Contains(strings.ToLower(string(body)), "blacklist") {
		return &port.RemotePolicyRejectError{Kind: port.PolicyBlacklist, Body: string(body)}
	}
	return &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
}

// StudentExists reports whether GET /students/{uid} returns 200, used by
// the sync worker for create idempotency (spec.md §6, §4.10).
func (c *Client) StudentExists(ctx context.Context, uid int) (bool, error) {
	op := "student_exists"
	resp, body, err := c.do(ctx, http.MethodGet, "/students/"+strconv.Itoa(uid), "", nil, 0)
	if err != nil {
		return false, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}
}

// PostAttendance posts an attendance event (spec.md §6: POST /attendance/).
// A 400 naming a schedule/group constraint surfaces as a policy rejection
// for the attendance orchestrator to escalate to an operator.
func (c *Client) PostAttendance(ctx context.Context, uid int, timestamp time.Time, assistantApproved bool) error {
	op := "post_attendance"
	payload := map[string]any{
		"uid":       uid,
		"timestamp": timestamp.UTC().Format(time.RFC3339),
	}
	if assistantApproved {
		payload["assistant_approved"] = true
	}

	resp, body, err := c.do(ctx, http.MethodPost, "/attendance/", "", payload, 0)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusBadRequest {
		lower := strings.ToLower(string(body))
		if strings.Contains(lower, "not allowed on") || strings.Contains(lower, "group schedule") {
			return &port.RemotePolicyRejectError{Kind: port.PolicySchedule, Body: string(body)}
		}
	}
	return &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
}

// StudentByStudentID fetches a student record by its human-facing
// student_id (spec.md §6: GET /students/by-student-id/{numeric}).
func (c *Client) StudentByStudentID(ctx context.Context, authToken, studentID string) (map[string]any, error) {
	op := "student_by_student_id"
	resp, body, err := c.do(ctx, http.MethodGet, "/students/by-student-id/"+studentID, authToken, nil, 0)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &port.RemoteBadResponseError{Op: op, Err: err}
	}
	return out, nil
}

// Exam fetches an exam definition for the exam-correction collaborator
// (spec.md §6: GET /internal/exams/{id}).
func (c *Client) Exam(ctx context.Context, authToken, examID string) (map[string]any, error) {
	op := "exam"
	resp, body, err := c.do(ctx, http.MethodGet, "/internal/exams/"+examID, authToken, nil, 0)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &port.RemoteBadResponseError{Op: op, Err: err}
	}
	return out, nil
}

// PostExamResults submits a full result set for an exam (spec.md §6:
// POST /internal/exams/{id}/results).
func (c *Client) PostExamResults(ctx context.Context, authToken, examID string, results map[string]any) error {
	op := "post_exam_results"
	resp, body, err := c.do(ctx, http.MethodPost, "/internal/exams/"+examID+"/results", authToken, results, 0)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}
	return &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
}

// PutExamStudentResults updates a single student's result within an exam
// (spec.md §6: PUT /internal/exams/{id}/students/{id}/results).
func (c *Client) PutExamStudentResults(ctx context.Context, authToken, examID, studentID string, results map[string]any) error {
	op := "put_exam_student_results"
	resp, body, err := c.do(ctx, http.MethodPut, "/internal/exams/"+examID+"/students/"+studentID+"/results", authToken, results, 0)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return &port.RemoteServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
}

// String renders the client's target, for logging.
func (c *Client) String() string {
	return fmt.Sprintf("remoteclient(%s)", c.baseURL)
}
