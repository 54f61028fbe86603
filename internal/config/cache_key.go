package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamKey returns the cache key for an exam's catalog entry
func (r *CacheKeyStruct) ExamKey(examID string) string {
	return fmt.Sprintf("exam:%s", examID)
}

// ExamQuestionsKey returns the cache key for an exam's full question bank
func (r *CacheKeyStruct) ExamQuestionsKey(examID string) string {
	return fmt.Sprintf("exam:%s:questions", examID)
}

// ExamSetsKey returns the cache key for an exam's active sets
func (r *CacheKeyStruct) ExamSetsKey(examID string) string {
	return fmt.Sprintf("exam:%s:sets", examID)
}

// SetQuestionsKey returns the cache key for the ordered questions of a set
func (r *CacheKeyStruct) SetQuestionsKey(setID string) string {
	return fmt.Sprintf("set:%s:questions", setID)
}

// ExamListKey returns the cache key for the published exam list
func (r *CacheKeyStruct) ExamListKey() string {
	return "exams:list"
}

// RevokedTokenKey returns the cache key marking a JWT id as logged out
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

var CacheKey = NewCacheKeyStruct()
