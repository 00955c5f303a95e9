package badger

import (
	"encoding/binary"
)

const (
	checkpointPrefix = "chkpt"
	failurePrefix    = "fail"
	failureIDSeq     = "failseq"
	runPrefix        = "run"
)

func makeCheckpointKey(file string) []byte {
	return []byte(checkpointPrefix + ":" + file)
}

func makeRunKey(runID string) []byte {
	return []byte(runPrefix + ":" + runID)
}

func makePartialFailureKey(runID string) []byte {
	return []byte(failurePrefix + ":" + runID + ":")
}

func makeFailureKey(runID string, seq uint64) []byte {
	prefix := makePartialFailureKey(runID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}
