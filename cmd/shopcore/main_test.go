package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupLogger_LevelFromEnv(t *testing.T) {
	t.Setenv("SHOPCORE_LOG_LEVEL", "debug")
	setupLogger()
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("unexpected level: %s", log.GetLevel())
	}
}

func TestSetupLogger_InvalidLevelKeepsDefault(t *testing.T) {
	t.Setenv("SHOPCORE_LOG_LEVEL", "chatty")
	setupLogger()
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("unexpected level: %s", log.GetLevel())
	}
}
