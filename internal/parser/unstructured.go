package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UnstructuredConfig holds the settings for the hosted partition API client.
type UnstructuredConfig struct {
	// BaseURL is the API base (e.g. "http://localhost:8000").
	BaseURL string
	// APIKey is the optional unstructured-api-key header value.
	APIKey string
	// Timeout bounds one partition request. Defaults to 2 minutes; hi_res
	// passes over large documents are slow.
	Timeout time.Duration
}

// UnstructuredExtractor is a StructuralExtractor backed by the Unstructured
// partition REST API, talked to via plain HTTP the same way the embedding
// clients are.
type UnstructuredExtractor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewUnstructuredExtractor constructs an UnstructuredExtractor.
func NewUnstructuredExtractor(cfg *UnstructuredConfig) *UnstructuredExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &UnstructuredExtractor{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// unstructuredElement is one element in the partition API response.
type unstructuredElement struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		PageNumber int    `json:"page_number"`
		TextAsHTML string `json:"text_as_html"`
	} `json:"metadata"`
}

// Partition sends the file to the partition endpoint requesting
// table-structure inference and title-based grouping.
func (e *UnstructuredExtractor) Partition(ctx context.Context, path string, strategy Strategy) ([]Element, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unstructured: open %s: %w", path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("unstructured: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("unstructured: read %s: %w", path, err)
	}

	fields := map[string]string{
		"strategy":          string(strategy),
		"chunking_strategy": "by_title",
	}
	if strategy == StrategyHiRes {
		fields["pdf_infer_table_structure"] = "true"
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("unstructured: build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("unstructured: build form: %w", err)
	}

	url := e.baseURL + "/general/v0/general"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("unstructured: create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("unstructured-api-key", e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unstructured: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unstructured: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw []unstructuredElement
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("unstructured: decode response: %w", err)
	}

	elements := make([]Element, 0, len(raw))
	for _, elem := range raw {
		page := elem.Metadata.PageNumber
		if page == 0 {
			page = 1
		}
		content := elem.Text
		if strings.EqualFold(elem.Type, "table") && elem.Metadata.TextAsHTML != "" {
			content = elem.Metadata.TextAsHTML
		}
		elements = append(elements, Element{
			Type: strings.ToLower(elem.Type),
			Text: content,
			Page: page,
		})
	}
	return elements, nil
}
