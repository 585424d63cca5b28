package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cmsportal/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the endpoint is considered down.
var ErrCircuitOpen = errors.New("translation endpoint circuit open")

const maxResponseSize = 1 << 20

// Translator turns text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// HTTPTranslator posts {q, target} to a translation endpoint. It accepts both
// a flat {translatedText} reply and the {data:{translations:[...]}} shape.
type HTTPTranslator struct {
	url        string
	httpClient *http.Client
	breaker    *circuit.Breaker
}

type HTTPOption func(*HTTPTranslator)

func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(t *HTTPTranslator) { t.httpClient = hc }
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(t *HTTPTranslator) { t.breaker = b }
}

func NewHTTPTranslator(url string, timeout time.Duration, opts ...HTTPOption) *HTTPTranslator {
	t := &HTTPTranslator{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.New("translate", circuit.WithFailureThreshold(3), circuit.WithCooldown(time.Minute)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

type request struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
	Data           struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	if !t.breaker.Allow() {
		return "", ErrCircuitOpen
	}
	out, err := t.call(ctx, text, lang)
	// a caller giving up says nothing about the endpoint
	if err != nil && ctx.Err() == nil {
		t.breaker.RecordFailure()
		return "", err
	}
	if err != nil {
		return "", err
	}
	t.breaker.RecordSuccess()
	return out, nil
}

func (t *HTTPTranslator) call(ctx context.Context, text, lang string) (string, error) {
	body, err := json.Marshal(request{Q: text, Target: lang, Format: "text"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("translate endpoint returned %d", resp.StatusCode)
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	out := decoded.TranslatedText
	if out == "" && len(decoded.Data.Translations) > 0 {
		out = decoded.Data.Translations[0].TranslatedText
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("translate endpoint returned no text")
	}
	return out, nil
}
