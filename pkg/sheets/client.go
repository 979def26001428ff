package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
)

// ValueRange is the wire shape of a block of cell values
type ValueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// appendResponse is the wire shape of an append result
type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
		UpdatedRows  int    `json:"updatedRows"`
	} `json:"updates"`
}

// Client is an HTTP client for the spreadsheet-shaped remote store
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	headers       map[string]string
	logger        logger.Logger
}

// NewClient creates a new spreadsheet API client
func NewClient(baseURL, spreadsheetID, token string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:       baseURL,
		spreadsheetID: spreadsheetID,
		headers:       headers,
		logger:        log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *Client) valuesURL(tabRange, suffix string) string {
	return fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s%s",
		c.baseURL, c.spreadsheetID, url.PathEscape(tabRange), suffix)
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending sheets request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("sheets request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("sheets request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps the HTTP response status to a classified error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	t := errs.TypeForStatusCode(resp.StatusCode)

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	switch t {
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("sheets quota exhausted", fields)
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("sheets authentication error", fields)
	case errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("sheet tab not found", fields)
	default:
		c.logger.ErrorWithFields("sheets API error", fields)
	}

	return &errs.Error{
		Type:    t,
		Message: fmt.Sprintf("sheets API returned status %d", resp.StatusCode),
		Code:    resp.StatusCode,
	}
}

func (c *Client) decodeJSON(resp *http.Response, target interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse sheets response", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// GetValues reads all cell values of a tab (or an explicit A1 range)
func (c *Client) GetValues(tabRange string) ([][]string, error) {
	req, err := http.NewRequest(http.MethodGet, c.valuesURL(tabRange, ""), nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	var vr ValueRange
	if err := c.decodeJSON(resp, &vr); err != nil {
		return nil, err
	}

	return vr.Values, nil
}

var updatedRowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// AppendRow appends one row to a tab and returns its resulting row number
func (c *Client) AppendRow(tab string, row []string) (int, error) {
	payload, err := json.Marshal(ValueRange{Values: [][]string{row}})
	if err != nil {
		return 0, errs.Newf(errs.ErrorTypeUnknown, "failed to marshal row: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost,
		c.valuesURL(tab, ":append?valueInputOption=RAW"), bytes.NewReader(payload))
	if err != nil {
		return 0, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return 0, err
	}

	var ar appendResponse
	if err := c.decodeJSON(resp, &ar); err != nil {
		return 0, err
	}

	m := updatedRowPattern.FindStringSubmatch(ar.Updates.UpdatedRange)
	if m == nil {
		return 0, errs.Newf(errs.ErrorTypeParsing,
			"append response has no row location: %q", ar.Updates.UpdatedRange)
	}

	var rowNum int
	fmt.Sscanf(m[1], "%d", &rowNum)
	return rowNum, nil
}

// UpdateRange overwrites an A1 range of a tab. Formula values require
// userEntered to be interpreted rather than stored literally.
func (c *Client) UpdateRange(tab, a1Range string, values [][]string, userEntered bool) error {
	payload, err := json.Marshal(ValueRange{Values: values})
	if err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to marshal values: %v", err)
	}

	inputOption := "RAW"
	if userEntered {
		inputOption = "USER_ENTERED"
	}

	req, err := http.NewRequest(http.MethodPut,
		c.valuesURL(tab+"!"+a1Range, "?valueInputOption="+inputOption), bytes.NewReader(payload))
	if err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkResponseStatus(resp)
}

// ClearTab clears all values of a tab
func (c *Client) ClearTab(tab string) error {
	req, err := http.NewRequest(http.MethodPost, c.valuesURL(tab, ":clear"), bytes.NewReader([]byte("{}")))
	if err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkResponseStatus(resp)
}
