package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/infrastructure/resilience"
)

// Client talks to the external structured-extraction vendor. The vendor
// exposes a synchronous analyze endpoint for small payloads and an async
// job API for large ones.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor

	pollInterval time.Duration
	pollTimeout  time.Duration
}

type Options struct {
	RequestTimeout     time.Duration
	RequestsPerSecond  float64
	Burst              int
	PollInterval       time.Duration
	PollTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := options.Burst
	if burst <= 0 {
		burst = 2
	}
	pollInterval := options.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	pollTimeout := options.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Minute
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: requestTimeout},
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		executor:     options.ResilienceExecutor,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

type analyzeRequest struct {
	Document string `json:"document"`
	MimeType string `json:"mime_type"`
}

type analyzeResponse struct {
	Blocks []blockDTO `json:"blocks"`
}

// ExtractBlocks runs the synchronous analyze call.
func (c *Client) ExtractBlocks(ctx context.Context, data []byte, mimeType string) ([]domain.Block, error) {
	request := analyzeRequest{
		Document: base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}

	var response analyzeResponse
	err := c.do(ctx, "analyze", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/analyze", request, &response, "analyze")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("vendor analyze", err)
	}
	return toDomainBlocks(response.Blocks), nil
}

type startJobResponse struct {
	JobID string `json:"job_id"`
}

type jobStatusResponse struct {
	Status string     `json:"status"`
	Blocks []blockDTO `json:"blocks"`
	Error  string     `json:"error"`
}

// ExtractBlocksAsync stores the payload with the vendor, starts a job and
// polls it to completion.
func (c *Client) ExtractBlocksAsync(ctx context.Context, data []byte, mimeType string) ([]domain.Block, error) {
	request := analyzeRequest{
		Document: base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}

	var started startJobResponse
	err := c.do(ctx, "start_job", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/jobs", request, &started, "start job")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("vendor start job", err)
	}
	if started.JobID == "" {
		return nil, fmt.Errorf("vendor start job: empty job id")
	}

	return c.pollJob(ctx, started.JobID)
}

func (c *Client) pollJob(ctx context.Context, jobID string) ([]domain.Block, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var status jobStatusResponse
		err := c.do(pollCtx, "poll_job", func(callCtx context.Context) error {
			return c.getJSON(callCtx, "/v1/jobs/"+jobID, &status, "poll job")
		})
		if err != nil {
			return nil, wrapTemporaryIfNeeded("vendor poll job", err)
		}

		switch status.Status {
		case "succeeded":
			return toDomainBlocks(status.Blocks), nil
		case "failed":
			return nil, fmt.Errorf("vendor job %s failed: %s", jobID, status.Error)
		}

		select {
		case <-pollCtx.Done():
			return nil, fmt.Errorf("vendor job %s: %w", jobID, pollCtx.Err())
		case <-ticker.C:
		}
	}
}

// do applies the rate limit, then runs the call through the resilience
// executor when one is configured.
func (c *Client) do(ctx context.Context, operation string, call func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ocr rate limit wait: %w", err)
	}
	if c.executor != nil {
		return c.executor.Execute(ctx, "ocr."+operation, call, classifyVendorError)
	}
	return call(ctx)
}

type blockDTO struct {
	ID         string   `json:"id"`
	BlockType  string   `json:"block_type"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Geometry   *boxDTO  `json:"geometry,omitempty"`
	RowIndex   int      `json:"row_index"`
	ColIndex   int      `json:"col_index"`
	EntityType string   `json:"entity_type"`
	ChildIDs   []string `json:"child_ids"`
}

type boxDTO struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func toDomainBlocks(dtos []blockDTO) []domain.Block {
	blocks := make([]domain.Block, 0, len(dtos))
	for _, dto := range dtos {
		block := domain.Block{
			ID:         dto.ID,
			Type:       domain.BlockType(dto.BlockType),
			Text:       dto.Text,
			Confidence: dto.Confidence,
			RowIndex:   dto.RowIndex,
			ColIndex:   dto.ColIndex,
			EntityType: dto.EntityType,
			ChildIDs:   dto.ChildIDs,
		}
		if dto.Geometry != nil {
			block.Geometry = domain.BoundingBox{
				Left:   dto.Geometry.Left,
				Top:    dto.Geometry.Top,
				Width:  dto.Geometry.Width,
				Height: dto.Geometry.Height,
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}
