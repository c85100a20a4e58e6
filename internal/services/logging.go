package services

import (
	"log"

	"github.com/qufrids/ad-analyzer-sub000/internal/config"
)

// Enabled with PIPELINE_DEBUG=1 (or true/yes).
var pipelineDebugEnabled = config.GetBool("PIPELINE_DEBUG")

func init() {
	if pipelineDebugEnabled {
		log.Println("[PIPELINE] Debug logging: ENABLED")
	}
}

// debugLog logs only when PIPELINE_DEBUG is enabled.
// Use this for verbose per-request details, raw model output, fetch traces, etc.
func debugLog(format string, args ...interface{}) {
	if pipelineDebugEnabled {
		log.Printf("[PIPELINE DEBUG] "+format, args...)
	}
}

// infoLog always logs important pipeline events.
// Use this for retry triggers, upstream errors, credit denials, etc.
func infoLog(format string, args ...interface{}) {
	log.Printf("[PIPELINE] "+format, args...)
}
