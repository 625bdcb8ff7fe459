package query_client

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meysamhadeli/dafc/constants/lipgloss"
	"github.com/meysamhadeli/dafc/providers/contracts"
	"go.uber.org/zap"
)

// Options configures a QueryClient.
type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	// ResponsePath receives the full response after a successful stream. Empty disables persisting.
	ResponsePath string
	Model        string
	Endpoint     string
	// Output receives response chunks as they arrive. An Output implementing Reset() error
	// is reset after every failed attempt.
	Output io.Writer
	// Status receives attempt banners, retry notices and the completion line.
	Status io.Writer
	Logger *zap.Logger
	Sleep  func(ctx context.Context, d time.Duration) error
}

// maxBackoffDelay caps a single retry delay.
const maxBackoffDelay = 5 * time.Minute

// outputResetter is implemented by outputs that buffer partial lines.
type outputResetter interface {
	Reset() error
}

// QueryResult describes a successful query.
type QueryResult struct {
	RequestID    string
	Content      string
	Attempts     int
	Elapsed      time.Duration
	ResponsePath string
}

// QueryClient streams a prompt to the chat provider, retrying retryable failures with exponential backoff.
type QueryClient struct {
	provider contracts.IChatAIProvider
	options  Options
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewQueryClient(provider contracts.IChatAIProvider, options Options) *QueryClient {
	if options.Output == nil {
		options.Output = io.Discard
	}
	if options.Status == nil {
		options.Status = io.Discard
	}
	if options.MaxRetries < 0 {
		options.MaxRetries = 0
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sleep := options.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &QueryClient{
		provider: provider,
		options:  options,
		logger:   logger,
		sleep:    sleep,
	}
}

// BuildUserMessage joins the serialized context and the user prompt into the user-role message.
// An empty context is left out entirely.
func BuildUserMessage(contextText string, userPrompt string) string {
	if contextText == "" {
		return fmt.Sprintf("User Request:\n%s", userPrompt)
	}
	return fmt.Sprintf("Project Context:\n%s\n\n---\n\nUser Request:\n%s", contextText, userPrompt)
}

// Query sends the context and prompt, streaming chunks to Options.Output. systemPrompt is sent as a
// system-role message when non-empty. A failure that ends the query is returned as *FatalError,
// except for context cancellation which is returned as is.
func (qc *QueryClient) Query(ctx context.Context, contextText string, userPrompt string, systemPrompt string) (*QueryResult, error) {
	requestID := uuid.NewString()
	logger := qc.logger.With(zap.String("request_id", requestID), zap.String("model", qc.options.Model))
	userMessage := BuildUserMessage(contextText, userPrompt)

	attempt := 0
	for {
		qc.printBanner(attempt)
		logger.Debug("sending request", zap.Int("attempt", attempt+1), zap.Int("message_chars", len(userMessage)))

		startTime := time.Now()
		content, err := qc.stream(ctx, userMessage, systemPrompt)
		if err == nil {
			elapsed := time.Since(startTime)
			if err := qc.persist(content); err != nil {
				return nil, err
			}

			fmt.Fprintln(qc.options.Status)
			fmt.Fprintln(qc.options.Status, lipgloss.Green.Render(fmt.Sprintf("Response stream complete (%.2fs).", elapsed.Seconds())))
			if qc.options.ResponsePath != "" {
				fmt.Fprintln(qc.options.Status, lipgloss.Gray.Render(fmt.Sprintf("Full response saved to %s", qc.options.ResponsePath)))
			}
			logger.Debug("query succeeded", zap.Int("attempts", attempt+1), zap.Duration("elapsed", elapsed))

			return &QueryResult{
				RequestID:    requestID,
				Content:      content,
				Attempts:     attempt + 1,
				Elapsed:      elapsed,
				ResponsePath: qc.options.ResponsePath,
			}, nil
		}

		if isCanceled(ctx, err) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		if resetter, ok := qc.options.Output.(outputResetter); ok {
			if err := resetter.Reset(); err != nil {
				logger.Debug("failed to reset output", zap.Error(err))
			}
		}

		class := Classify(err)
		logger.Warn("query attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Stringer("class", class),
			zap.Error(err))
		fmt.Fprintln(qc.options.Status)
		fmt.Fprintln(qc.options.Status, lipgloss.Red.Render(fmt.Sprintf("LLM API Error (%s): %v", class, err)))

		if !class.Retryable() {
			return nil, &FatalError{Class: class, Attempts: attempt + 1, Err: err}
		}

		attempt++
		if attempt > qc.options.MaxRetries {
			return nil, &FatalError{Class: class, Attempts: attempt, Exhausted: true, Err: err}
		}

		delay := backoffDelay(qc.options.BaseDelay, attempt)
		fmt.Fprintln(qc.options.Status, lipgloss.Yellow.Render(fmt.Sprintf("Retrying in %s...", delay)))
		if err := qc.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// backoffDelay returns base * 2^attempt, capped at maxBackoffDelay.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		if delay >= maxBackoffDelay/2 {
			return maxBackoffDelay
		}
		delay *= 2
	}
	return min(delay, maxBackoffDelay)
}

// stream forwards chunks to the output while accumulating the full response.
func (qc *QueryClient) stream(ctx context.Context, userMessage string, systemPrompt string) (string, error) {
	var fullResponse strings.Builder

	for response := range qc.provider.ChatCompletionRequest(ctx, userMessage, systemPrompt) {
		if response.Err != nil {
			return "", response.Err
		}
		if response.Done {
			return fullResponse.String(), nil
		}

		fullResponse.WriteString(response.Content)
		if _, err := io.WriteString(qc.options.Output, response.Content); err != nil {
			qc.logger.Debug("failed to write response chunk", zap.Error(err))
		}
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "", io.ErrUnexpectedEOF
}

func (qc *QueryClient) persist(content string) error {
	if qc.options.ResponsePath == "" {
		return nil
	}
	if err := os.WriteFile(qc.options.ResponsePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to save response to %s: %w", qc.options.ResponsePath, err)
	}
	return nil
}

func (qc *QueryClient) printBanner(attempt int) {
	banner := fmt.Sprintf("Sending request to model '%s' via %s", qc.options.Model, qc.options.Endpoint)
	if attempt > 0 {
		banner += fmt.Sprintf(" (attempt %d/%d)", attempt+1, qc.options.MaxRetries+1)
	}
	fmt.Fprintln(qc.options.Status, lipgloss.BlueSky.Render(banner+"..."))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
