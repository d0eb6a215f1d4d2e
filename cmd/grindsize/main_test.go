package main

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		flag, config bool
		want         logrus.Level
	}{
		{false, false, logrus.InfoLevel},
		{true, false, logrus.DebugLevel},
		{false, true, logrus.DebugLevel},
	}
	for _, tc := range tests {
		if got := logLevel(tc.flag, tc.config); got != tc.want {
			t.Errorf("logLevel(%v, %v) = %v, want %v", tc.flag, tc.config, got, tc.want)
		}
	}
}
