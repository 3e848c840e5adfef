package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/bondstress/pkg/series"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []float64
		wantErr error
	}{
		{
			name:  "yahoo style picks close",
			input: "Date,Open,High,Low,Close,Volume\n2024-01-02,1,2,0.5,1.5,100\n2024-01-03,1,2,0.5,1.7,100\n",
			want:  []float64{1.5, 1.7},
		},
		{
			name:  "fred export skips missing",
			input: "DATE,DGS10\n2024-01-01,.\n2024-01-02,3.95\n2024-01-03,3.91\n",
			want:  []float64{3.95, 3.91},
		},
		{
			name:  "unsorted rows are ordered",
			input: "date,value\n2024-01-03,2\n2024-01-02,1\n",
			want:  []float64{1, 2},
		},
		{
			name:    "duplicate date",
			input:   "date,value\n2024-01-02,1\n2024-01-02,2\n",
			wantErr: series.ErrMalformed,
		},
		{
			name:    "bad date",
			input:   "date,value\n01/02/2024,1\n",
			wantErr: series.ErrMalformed,
		},
		{
			name:    "single column",
			input:   "date\n2024-01-02\n",
			wantErr: series.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseCSV("x", strings.NewReader(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Values())
			assert.NoError(t, s.Validate())
		})
	}
}

func TestCSVProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NVDA.csv"),
		[]byte("date,close\n2024-01-02,480\n2024-01-03,475\n2024-01-04,490\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeriesTenYear+".csv"),
		[]byte("DATE,DGS10\n2024-01-02,3.95\n"), 0o644))

	p, err := NewCSVProvider(dir)
	require.NoError(t, err)
	ctx := context.Background()

	closes, err := p.DailyCloses(ctx, "NVDA",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []float64{475, 490}, closes.Values())

	yields, err := p.Observations(ctx, SeriesTenYear, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, yields.Len())

	_, err = p.DailyCloses(ctx, "AMD", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.DailyCloses(cancelled, "NVDA", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCSVProvider_MissingDir(t *testing.T) {
	_, err := NewCSVProvider(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
