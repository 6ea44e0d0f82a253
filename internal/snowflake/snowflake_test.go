package snowflake

import "testing"

func TestSetupSnowflake(t *testing.T) {
	err := Setup(3)
	if err != nil {
		t.Error(err)
	}

	err = Setup(3)
	if err == nil {
		t.Error("expected error on second Setup")
	}
}

func TestGenerateSnowflake(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Error(err)
	}

	extracted := Extract(id)
	if extracted.WorkerID != 3 {
		t.Errorf("expected worker ID 3, got %d", extracted.WorkerID)
	}
	if extracted.Timestamp != ExtractTimestamp(id) {
		t.Error("Extract and ExtractTimestamp disagree")
	}
}

func TestSnowflakeIncrementOverflow(t *testing.T) {
	for i := 0; i < 100000; i++ {
		_, err := Generate()
		if err != nil {
			return
		}
	}
	t.Error("Expected increment overflow, but there wasn't")
}
