package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/safetalk/safetalk-backend/internal/config"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/pkg/logger"
	"gorm.io/gorm"
)

// Verdict is the normalized output of a toxicity classification, regardless of
// which backend produced it.
type Verdict struct {
	IsToxic             bool    `json:"isToxic"`
	ToxicProbability    float64 `json:"toxicProbability"`
	NonToxicProbability float64 `json:"nonToxicProbability"`
	Model               string  `json:"model"`
	Explanation         string  `json:"explanation"`
}

// Classifier is the pluggable toxicity backend. Implementations may fail;
// ClassifyMessage absorbs those failures so callers always get a Verdict.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Verdict, error)
}

var (
	localClassifier  Classifier = NewHeuristicClassifier()
	remoteClassifier Classifier
)

// InitClassifiers wires the remote backend from config. Safe to skip in tests;
// ClassifyMessage falls back to the local backend when no remote is set.
func InitClassifiers() {
	remoteClassifier = NewGroqClassifier(
		config.AppConfig.GroqAPIURL,
		config.AppConfig.GroqAPIKey,
		time.Duration(config.AppConfig.ToxicityTimeoutMs)*time.Millisecond,
	)
}

// SetClassifiers overrides the backends (used by tests).
func SetClassifiers(local, remote Classifier) {
	if local != nil {
		localClassifier = local
	}
	remoteClassifier = remote
}

// ClassifyMessage runs the selected backend and never returns an error. Any
// backend failure degrades to a non-toxic verdict with the reason recorded -
// chat availability takes precedence over moderation accuracy.
func ClassifyMessage(ctx context.Context, text string, useRemote bool) *Verdict {
	classifier := localClassifier
	if useRemote && remoteClassifier != nil {
		classifier = remoteClassifier
	}

	verdict, err := classifier.Classify(ctx, text)
	if err != nil || verdict == nil {
		logger.Warn().Err(err).Bool("remote", useRemote).
			Msg("Toxicity backend unavailable, defaulting to non-toxic")
		return &Verdict{
			IsToxic:             false,
			ToxicProbability:    0,
			NonToxicProbability: 1,
			Model:               "none",
			Explanation:         "classifier unavailable",
		}
	}
	return verdict
}

// DismissVerdict records that the recipient ignored a toxic verdict for this
// (sender, message) pair. Idempotent - dismissing twice is not an error.
func DismissVerdict(recipientID, senderID, messageID string) error {
	dismissal := models.VerdictDismissal{
		RecipientID: recipientID,
		SenderID:    senderID,
		MessageID:   messageID,
		CreatedAt:   time.Now(),
	}
	err := database.DB.Create(&dismissal).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// IsVerdictDismissed reports whether the recipient already dismissed a verdict
// for this exact (sender, message) pair.
func IsVerdictDismissed(recipientID, senderID, messageID string) (bool, error) {
	var count int64
	err := database.DB.Model(&models.VerdictDismissal{}).
		Where("recipient_id = ? AND sender_id = ? AND message_id = ?", recipientID, senderID, messageID).
		Count(&count).Error
	return count > 0, err
}

// --- Local heuristic backend ---

// HeuristicClassifier is the fast on-box backend: weighted term and pattern
// matching. It is deliberately conservative - its job is to flag obvious abuse
// instantly, the remote model handles nuance.
type HeuristicClassifier struct {
	terms    map[string]float64
	patterns []weightedPattern
}

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
	label  string
}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{
		terms: map[string]float64{
			"idiot":     0.4,
			"stupid":    0.35,
			"dumb":      0.3,
			"loser":     0.35,
			"ugly":      0.3,
			"trash":     0.3,
			"worthless": 0.45,
			"pathetic":  0.35,
			"moron":     0.4,
			"shut up":   0.3,
		},
		patterns: []weightedPattern{
			{regexp.MustCompile(`(?i)\bkill\s+(yourself|urself|u)\b`), 1.0, "threat of harm"},
			{regexp.MustCompile(`(?i)\bi\s+hate\s+you\b`), 0.5, "hateful statement"},
			{regexp.MustCompile(`(?i)\bnobody\s+(likes|wants)\s+you\b`), 0.5, "targeted harassment"},
			{regexp.MustCompile(`(?i)\bgo\s+die\b`), 1.0, "threat of harm"},
		},
	}
}

func (h *HeuristicClassifier) Classify(ctx context.Context, text string) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lowered := strings.ToLower(text)
	score := 0.0
	var hits []string

	for term, weight := range h.terms {
		if strings.Contains(lowered, term) {
			score += weight
			hits = append(hits, term)
		}
	}
	for _, p := range h.patterns {
		if p.re.MatchString(text) {
			score += p.weight
			hits = append(hits, p.label)
		}
	}

	if score > 0.95 {
		score = 0.95
	}

	verdict := &Verdict{
		IsToxic:             score >= 0.5,
		ToxicProbability:    score,
		NonToxicProbability: 1 - score,
		Model:               "heuristic",
		Explanation:         "no abusive language detected",
	}
	if len(hits) > 0 {
		verdict.Explanation = "matched: " + strings.Join(hits, ", ")
	}
	return verdict, nil
}

// --- Remote LLM backend ---

// GroqClassifier asks a Groq-hosted model to judge the text. The model is
// prompted to answer in strict JSON; anything it returns outside that shape is
// treated as a backend failure.
type GroqClassifier struct {
	URL    string
	APIKey string
	Model  string
	Client *http.Client
}

const groqModel = "gemma2-9b-it"

const groqSystemPrompt = `You are a toxicity detection system. For the given message, respond with a JSON object in this exact format: {"is_toxic": true/false, "reason": "brief explanation"}`

func NewGroqClassifier(url, apiKey string, timeout time.Duration) *GroqClassifier {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &GroqClassifier{
		URL:    url,
		APIKey: apiKey,
		Model:  groqModel,
		Client: &http.Client{Timeout: timeout},
	}
}

type groqChatRequest struct {
	Model       string            `json:"model"`
	Messages    []groqChatMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
}

type groqChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GroqClassifier) Classify(ctx context.Context, text string) (*Verdict, error) {
	reqBody := groqChatRequest{
		Model: g.Model,
		Messages: []groqChatMessage{
			{Role: "system", Content: groqSystemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0.1,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq api failed with status: %d", resp.StatusCode)
	}

	var chatResp groqChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, err
	}
	if len(chatResp.Choices) == 0 {
		return nil, errors.New("groq api returned no choices")
	}

	var result struct {
		IsToxic bool   `json:"is_toxic"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	verdict := &Verdict{
		IsToxic:             result.IsToxic,
		ToxicProbability:    0.1,
		NonToxicProbability: 0.9,
		Model:               g.Model,
		Explanation:         result.Reason,
	}
	if result.IsToxic {
		verdict.ToxicProbability, verdict.NonToxicProbability = 0.9, 0.1
	}
	return verdict, nil
}
