package service

import (
	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

// AnalysisRepository is re-exported from domain for convenience
type AnalysisRepository = domain.AnalysisRepository
