package inmemdb

import (
	"sync"

	"github.com/eduflick/backend/core/enrollment"
)

type (
	// DB keeps the funnel tables in memory. Every table is guarded by one RWMutex.
	DB struct {
		mutex         sync.RWMutex
		profiles      map[string]*enrollment.Profile
		enrollments   map[int64]*enrollment.Enrollment
		registrations []enrollment.Registration
		enrollmentPK  int64
	}
)

func Open() *DB {
	return &DB{
		profiles:    make(map[string]*enrollment.Profile),
		enrollments: make(map[int64]*enrollment.Enrollment),
	}
}
