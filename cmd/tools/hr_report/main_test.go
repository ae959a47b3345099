package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sensacare/vitals/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `timestamp,value,hrv,activity,resting
2024-05-20T06:00:00Z,58,62.5,rest,true
# morning walk
2024-05-20T07:00:00Z,95,,light,
2024-05-20T08:00:00Z,72
`

func TestReadCSV(t *testing.T) {
	readings, err := readCSV(strings.NewReader(sample), "u1")
	require.NoError(t, err)
	require.Len(t, readings, 3)

	first := readings[0]
	assert.Equal(t, "u1", first.UserID)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 58, first.Value)
	require.NotNil(t, first.HRVValue)
	assert.InDelta(t, 62.5, *first.HRVValue, 1e-9)
	assert.Equal(t, models.ActivityRest, first.ActivityLevel)
	assert.True(t, first.IsRestingHeartRate)

	assert.Nil(t, readings[1].HRVValue)
	assert.Equal(t, models.ActivityLight, readings[1].ActivityLevel)
	assert.Equal(t, models.ActivityUnknown, readings[2].ActivityLevel)

	ids := map[string]bool{}
	for _, r := range readings {
		ids[r.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestReadCSVErrors(t *testing.T) {
	for _, input := range []string{
		"yesterday,70\n",
		"2024-05-20T06:00:00Z,fast\n",
		"2024-05-20T06:00:00Z,70,high\n",
		"2024-05-20T06:00:00Z,70,,,maybe\n",
		"2024-05-20T06:00:00Z\n",
	} {
		_, err := readCSV(strings.NewReader(input), "u1")
		assert.Error(t, err, input)
	}
}

func TestBatchMessages(t *testing.T) {
	readings, err := readCSV(strings.NewReader(sample), "u1")
	require.NoError(t, err)

	msgs, err := batchMessages("vitals.readings", "u1", readings, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var msg models.ReadingBatchMessage
	require.NoError(t, json.Unmarshal(msgs[1].Data, &msg))
	assert.Equal(t, "vitals.readings", msgs[1].Subject)
	assert.Equal(t, "u1", msg.UserID)
	assert.Len(t, msg.Readings, 1)
}
