package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregatePostStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"all success", []string{DestinationStatusSuccess, DestinationStatusSuccess}, PostStatusPublished},
		{"single success", []string{DestinationStatusSuccess}, PostStatusPublished},
		{"mixed", []string{DestinationStatusSuccess, DestinationStatusFailed}, PostStatusPartial},
		{"success with pending left", []string{DestinationStatusSuccess, DestinationStatusPending}, PostStatusPartial},
		{"all failed", []string{DestinationStatusFailed, DestinationStatusFailed}, PostStatusFailed},
		{"nothing resolved", []string{DestinationStatusPending}, PostStatusFailed},
		{"empty", nil, PostStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dests []*PostDestination
			for _, s := range tt.statuses {
				dests = append(dests, &PostDestination{Status: s})
			}
			assert.Equal(t, tt.want, AggregatePostStatus(dests))
		})
	}
}
