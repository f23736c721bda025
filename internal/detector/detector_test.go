package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		preStatus domain.Status
		post      domain.Snapshot
		want      Transition
	}{
		{
			name:      "previsional to engagement is opened",
			preStatus: domain.StatusPrevisional,
			post:      domain.Snapshot{Status: domain.StatusEngagement, IsOpen: true},
			want:      Opened,
		},
		{
			name:      "cloture to demande is opened",
			preStatus: domain.StatusCloture,
			post:      domain.Snapshot{Status: domain.StatusDemande, IsOpen: true},
			want:      Opened,
		},
		{
			name:      "already engagement stays no_change on repeated poll",
			preStatus: domain.StatusEngagement,
			post:      domain.Snapshot{Status: domain.StatusEngagement, IsOpen: true},
			want:      NoChange,
		},
		{
			name:      "demande to cloture without opening is status_changed",
			preStatus: domain.StatusDemande,
			post:      domain.Snapshot{Status: domain.StatusCloture, IsOpen: false},
			want:      StatusChanged,
		},
		{
			name:      "re-opening after closure is a new opened",
			preStatus: domain.StatusClosed,
			post:      domain.Snapshot{Status: domain.StatusEngagement, IsOpen: true},
			want:      Opened,
		},
		{
			name:      "identical status is no_change",
			preStatus: domain.StatusPrevisional,
			post:      domain.Snapshot{Status: domain.StatusPrevisional, IsOpen: false},
			want:      NoChange,
		},
		{
			name:      "empty failed-scrape snapshot never opens",
			preStatus: domain.StatusPrevisional,
			post:      domain.Snapshot{},
			want:      NoChange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.preStatus, tc.post))
		})
	}
}
