package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCodecRoundTrip(t *testing.T) {
	job := ProcessingJob{DocumentID: 42, FilePath: "/tmp/uploads/abc_report.pdf"}

	payload, err := EncodeJob(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{"documentId":42,"filePath":"/tmp/uploads/abc_report.pdf"}`, string(payload))

	decoded, err := DecodeJob(payload)
	require.NoError(t, err)
	assert.Equal(t, job, decoded)
}

func TestDecodeJobRejectsIncomplete(t *testing.T) {
	cases := []string{
		`{}`,
		`{"documentId":0,"filePath":"/tmp/x"}`,
		`{"documentId":1}`,
		`not json`,
	}
	for _, payload := range cases {
		_, err := DecodeJob([]byte(payload))
		assert.Error(t, err, payload)
	}
}
