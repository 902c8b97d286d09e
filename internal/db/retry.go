package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

const DefaultMaxRetries = 3

// Try executes an operation, retrying on duplicate key errors.
// Retrying makes sense only for operations that regenerate their keys on each
// attempt; anything else fails fast.
func Try(op Operation) error {
	var err error
	for attempt := 0; attempt <= DefaultMaxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == DefaultMaxRetries {
			break
		}
		if IsDuplicateKeyError(err) {
			time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
			continue
		}
		return err
	}
	return err
}

// IsDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
