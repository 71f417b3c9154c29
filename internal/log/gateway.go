package log

import (
	"fmt"
	"strings"
)

// LogRequest logs an outgoing generation request in human-readable format.
func LogRequest(providerName, model string, historyLen int) {
	if !enabled {
		return
	}
	logger.Info(fmt.Sprintf(">>> [%s] %s | messages=%d", providerName, model, historyLen))
}

// LogResponse logs the reply text of a completed generation.
func LogResponse(providerName, reply string) {
	if !enabled {
		return
	}
	logger.Info(fmt.Sprintf("<<< [%s] %s", providerName, escapeForLog(reply)))
}

// LogError logs an error in human-readable format.
func LogError(context string, err error) {
	if !enabled {
		return
	}
	logger.Error(fmt.Sprintf("!!! ERROR [%s] %v", context, err))
}

// escapeForLog escapes newlines and tabs for single-line log output.
func escapeForLog(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
