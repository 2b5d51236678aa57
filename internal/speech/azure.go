package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface checks.
var (
	_ TTS                = (*AzureClient)(nil)
	_ domain.VoiceLister = (*AzureClient)(nil)
)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithVoice sets the default TTS voice.
func WithVoice(voice string) AzureOption {
	return func(c *AzureClient) {
		c.voice = voice
	}
}

// WithAudioFormat sets the audio output format.
func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) {
		c.format = format
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		c.httpClient.Timeout = d
	}
}

// WithEndpoint overrides the regional base URL
// (https://{region}.tts.speech.microsoft.com).
func WithEndpoint(base string) AzureOption {
	return func(c *AzureClient) {
		c.endpoint = strings.TrimRight(base, "/")
	}
}

// AzureClient handles text-to-speech synthesis and voice listing via
// Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	region          string
	endpoint        string
	voice           string
	format          string
	httpClient      *http.Client
	log             *logger.Logger
}

// Voice returns the default voice name.
func (c *AzureClient) Voice() string { return c.voice }

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		region:          region,
		endpoint:        fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
		voice:           DefaultVoice,
		format:          DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize converts text to speech audio data (WAV bytes) with the given
// voice and rate multiplier. An empty voice uses the default.
func (c *AzureClient) Synthesize(ctx context.Context, text, voice string, rate float64) ([]byte, error) {
	if voice == "" {
		voice = c.voice
	}
	ssml := buildSSML(text, voice, rate)
	c.log.Debug("azure tts: synthesizing %d chars with voice %s at %.1fx", len(text), voice, rate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/cognitiveservices/v1", strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "OttoRead/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}

	c.log.Debug("azure tts: got %d bytes of audio", len(audioData))
	return audioData, nil
}

// azureVoice is one entry of the voices/list response.
type azureVoice struct {
	ShortName   string `json:"ShortName"`
	DisplayName string `json:"DisplayName"`
	Locale      string `json:"Locale"`
	Gender      string `json:"Gender"`
}

// ListVoices returns the voices available in the client's region. Voice
// names carry the gender ("Ryan (Male)") so gender hints can match them.
func (c *AzureClient) ListVoices(ctx context.Context) ([]domain.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure voice list error %d: %s", resp.StatusCode, string(body))
	}

	var raw []azureVoice
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding voice list: %w", err)
	}

	voices := make([]domain.Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, domain.Voice{
			ID:     v.ShortName,
			Name:   fmt.Sprintf("%s (%s)", v.DisplayName, v.Gender),
			Locale: v.Locale,
			Gender: v.Gender,
		})
	}
	c.log.Debug("azure tts: %d voices in %s", len(voices), c.region)
	return voices, nil
}

// buildSSML creates SSML markup for the synthesis request.
func buildSSML(text, voice string, rate float64) string {
	return fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'><prosody rate='%.2f'>%s</prosody></voice></speak>`,
		RecognitionLocale, voiceLocale(voice), voice, rate, html.EscapeString(text),
	)
}

// voiceLocale extracts the locale prefix of an Azure voice short name
// ("en-GB-RyanNeural" -> "en-GB").
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return RecognitionLocale
	}
	return parts[0] + "-" + parts[1]
}
