package models

import (
	"time"
)

// Namespace is the partition key isolating one creator's indexed content.
type Namespace string

func (n Namespace) String() string {
	return string(n)
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation held by the caller.
type Message struct {
	Role    Role   `json:"role"    validate:"required,oneof=user assistant" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// Video is a single upload of a channel.
type Video struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Cue is one timed caption line.
type Cue struct {
	Text     string        `json:"text"`
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
}

// Transcript is the caption text of one video.
type Transcript struct {
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
}

// VectorMetadata is stored alongside every embedding.
type VectorMetadata struct {
	Text string `json:"text"`
}

// VectorRecord is an embedded chunk ready for upsert.
type VectorRecord struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"embedding"`
	Metadata  VectorMetadata `json:"metadata"`
}

// Match is a similarity search hit.
type Match struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// NamespaceStat summarises one indexed namespace.
type NamespaceStat struct {
	Namespace Namespace `json:"namespace"`
	Records   int       `json:"records"`
}

// IngestResult reports what an ingestion call did.
type IngestResult struct {
	Namespace               Namespace `json:"namespace"`
	NamespaceAlreadyExisted bool      `json:"namespaceAlreadyExisted"`
	Videos                  int       `json:"videos,omitempty"`
	Chunks                  int       `json:"chunks,omitempty"`
}

// Action tells the presentation layer how to treat an insight.
type Action string

const (
	ActionAskClarification Action = "ask_clarification"
	ActionProvideAnalysis  Action = "provide_analysis"
	ActionNeedMoreData     Action = "need_more_data"
)

type Interest struct {
	Topic      string `json:"topic"      validate:"required"`
	Confidence string `json:"confidence" validate:"required,oneof=high medium low"`
	Evidence   string `json:"evidence"   validate:"required"`
}

type PersonalityTrait struct {
	Trait       string `json:"trait"       validate:"required"`
	Description string `json:"description" validate:"required"`
}

type SpeakingStyle struct {
	Tone       string   `json:"tone"       validate:"required"`
	Vocabulary string   `json:"vocabulary" validate:"required"`
	Patterns   []string `json:"patterns"   validate:"required,min=1,dive,required"`
}

type TopTopic struct {
	Name      string `json:"name"      validate:"required"`
	Frequency string `json:"frequency" validate:"required"`
}

// Metrics describes the generation call behind an insight.
type Metrics struct {
	InputTokens     int   `json:"inputTokens"`
	OutputTokens    int   `json:"outputTokens"`
	LatencyMs       int64 `json:"latencyMs"`
	SchemaValidated bool  `json:"schemaValidated"`
}

// StructuredInsight is the answer to one query turn. Optional fields are either
// populated or absent, never empty.
type StructuredInsight struct {
	Message           string             `json:"message"                     validate:"required"`
	Action            Action             `json:"action"                      validate:"required,oneof=ask_clarification provide_analysis need_more_data"`
	FollowUpOptions   []string           `json:"followUpOptions,omitempty"   validate:"omitempty,dive,required"`
	Interests         []Interest         `json:"interests,omitempty"         validate:"omitempty,dive"`
	PersonalityTraits []PersonalityTrait `json:"personalityTraits,omitempty" validate:"omitempty,dive"`
	SpeakingStyle     *SpeakingStyle     `json:"speakingStyle,omitempty"     validate:"omitempty"`
	TopTopics         []TopTopic         `json:"topTopics,omitempty"         validate:"omitempty,dive"`
	Summary           string             `json:"summary,omitempty"`
	Metrics           *Metrics           `json:"metrics,omitempty"`
}
