package voice

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"autodialer/internal/logging"
	"autodialer/internal/phonenumber"
	"go.uber.org/zap"
)

// Mock text-to-speech / speech-to-text provider. Everything here is
// simulated; no audio is synthesized or transcribed.

const (
	wordsPerMinute      = 150.0
	ttsCostPerChar      = 0.000004
	sttCostPerIncrement = 0.006
	sttIncrementSeconds = 15.0
)

type Voice struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	Language     string `json:"language"`
	LanguageName string `json:"language_name"`
}

type TTSResult struct {
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
	VoiceUsed       string  `json:"voice_used"`
	Text            string  `json:"text"`
	CharacterCount  int     `json:"character_count"`
	Cost            float64 `json:"cost"`
}

type STTResult struct {
	Transcription   string  `json:"transcription"`
	Confidence      float64 `json:"confidence"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration_seconds"`
	WordCount       int     `json:"word_count"`
	Cost            float64 `json:"cost"`
}

type CallScript struct {
	Script            string  `json:"script"`
	EstimatedDuration float64 `json:"estimated_duration"`
	WordCount         int     `json:"word_count"`
	TwiML             string  `json:"twiml"`
	Voice             string  `json:"voice_recommendation"`
}

type Service struct {
	DefaultVoice string
}

func NewService() *Service {
	return &Service{DefaultVoice: "en-IN-Neural2-A"}
}

var voiceCatalog = []Voice{
	{ID: "en-IN-Neural2-A", Name: "Aditi", Gender: "female", Language: "en-IN", LanguageName: "English (India)"},
	{ID: "en-IN-Neural2-B", Name: "Ravi", Gender: "male", Language: "en-IN", LanguageName: "English (India)"},
	{ID: "en-US-Neural2-C", Name: "Sarah", Gender: "female", Language: "en-US", LanguageName: "English (US)"},
	{ID: "en-US-Neural2-D", Name: "John", Gender: "male", Language: "en-US", LanguageName: "English (US)"},
}

func (service *Service) AvailableVoices() []Voice {
	return voiceCatalog
}

// TextToSpeech returns a simulated synthesis result with a deterministic
// audio URL derived from the text.
func (service *Service) TextToSpeech(text, voice string, speed float64) TTSResult {
	if voice == "" {
		voice = service.DefaultVoice
	}

	if speed <= 0 {
		speed = 1.0
	}

	logging.Logger.Debug("generating mock TTS",
		zap.Int("characters", len(text)),
		zap.String("voice", voice),
	)

	return TTSResult{
		AudioURL:        mockAudioURL(text),
		DurationSeconds: EstimateSpeechDuration(text, speed),
		VoiceUsed:       voice,
		Text:            text,
		CharacterCount:  len(text),
		Cost:            EstimateTTSCost(text),
	}
}

// SpeechToText returns a canned transcription picked by audio size, so
// the demo widget behaves consistently for the same input.
func (service *Service) SpeechToText(audio []byte, language string, durationSeconds float64) STTResult {
	if language == "" {
		language = "en-IN"
	}

	if durationSeconds <= 0 {
		durationSeconds = 5
	}

	transcription := sampleTranscriptions[len(audio)%len(sampleTranscriptions)]

	return STTResult{
		Transcription:   transcription,
		Confidence:      0.92,
		Language:        language,
		DurationSeconds: durationSeconds,
		WordCount:       len(strings.Fields(transcription)),
		Cost:            EstimateSTTCost(durationSeconds),
	}
}

var sampleTranscriptions = []string{
	"Start calling all numbers",
	"Call 9876543210",
	"Show me today's call logs",
	"What is the current status",
	"Stop the autodialer",
	"Help me with commands",
}

var scriptTemplates = map[string]string{
	"general":      "Hello, this is a demonstration call from the Autodialer system to %s. This is only a simulation and no real connection has been made. Thank you for your attention.",
	"survey":       "Hello, we are conducting a brief survey. This is a simulated call from our autodialer system. In a real scenario, we would collect your responses. This is only a demonstration.",
	"reminder":     "This is a reminder call regarding your appointment. This is a demonstration from our automated system calling %s. No real appointment exists.",
	"notification": "This is an important notification call. This message is being delivered through our autodialer system as a demonstration. No real notification is being sent.",
}

// GenerateCallScript renders a purpose-specific script together with its
// TwiML envelope.
func (service *Service) GenerateCallScript(number, purpose string) CallScript {
	template, ok := scriptTemplates[purpose]
	if !ok {
		template = scriptTemplates["general"]
	}

	script := template
	if strings.Contains(template, "%s") {
		script = fmt.Sprintf(template, phonenumber.Format(number))
	}

	return CallScript{
		Script:            script,
		EstimatedDuration: EstimateSpeechDuration(script, 1.0),
		WordCount:         len(strings.Fields(script)),
		TwiML:             service.renderTwiML(script),
		Voice:             service.DefaultVoice,
	}
}

// EstimateSpeechDuration assumes an average speaking rate of 150 words
// per minute, adjusted by speed.
func EstimateSpeechDuration(text string, speed float64) float64 {
	words := float64(len(strings.Fields(text)))
	base := math.Round(words/wordsPerMinute*60*10) / 10

	return math.Round(base/speed*10) / 10
}

// EstimateTTSCost mirrors typical cloud TTS pricing per character.
func EstimateTTSCost(text string) float64 {
	return math.Round(float64(len(text))*ttsCostPerChar*1e6) / 1e6
}

// EstimateSTTCost charges per started 15-second increment.
func EstimateSTTCost(durationSeconds float64) float64 {
	increments := math.Ceil(durationSeconds / sttIncrementSeconds)

	return math.Round(increments*sttCostPerIncrement*10000) / 10000
}

func mockAudioURL(text string) string {
	sum := md5.Sum([]byte(text))
	hash := hex.EncodeToString(sum[:])[:9]

	return fmt.Sprintf("/api/v1/audio/tts/%s.mp3", hash)
}

func (service *Service) renderTwiML(script string) string {
	voice := strings.ToLower(service.DefaultVoice)

	var builder strings.Builder

	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString("<Response>\n")
	builder.WriteString(fmt.Sprintf("  <Say voice=%q language=\"en-IN\">%s</Say>\n", voice, script))
	builder.WriteString("  <Pause length=\"2\"/>\n")
	builder.WriteString(fmt.Sprintf(
		"  <Say voice=%q language=\"en-IN\">Press any key to end this demonstration call.</Say>\n", voice,
	))
	builder.WriteString("  <Gather numDigits=\"1\" timeout=\"5\">\n")
	builder.WriteString(fmt.Sprintf("    <Say voice=%q language=\"en-IN\">Waiting for input...</Say>\n", voice))
	builder.WriteString("  </Gather>\n")
	builder.WriteString(fmt.Sprintf(
		"  <Say voice=%q language=\"en-IN\">Thank you. This demonstration call is now ending.</Say>\n", voice,
	))
	builder.WriteString("  <Hangup/>\n")
	builder.WriteString("</Response>")

	return builder.String()
}
