package service

import (
	"context"

	"github.com/vocalbooth/api/internal/model"
	"github.com/vocalbooth/api/internal/structure"
)

// StructureService runs synchronous structure analysis for the guided
// re-recording flow.
type StructureService struct {
	analyzer *structure.Analyzer
}

func NewStructureService(analyzer *structure.Analyzer) *StructureService {
	return &StructureService{analyzer: analyzer}
}

// Analyze maps a song to its labeled sections and the verse/chorus subset
// the recording flow prompts for. An EmptyResultError from the analyzer
// propagates unchanged so the handler can report it as a distinct condition.
func (s *StructureService) Analyze(ctx context.Context, req *model.StructureAnalyzeRequest) (*model.StructureAnalyzeResponse, error) {
	sections, err := s.analyzer.Analyze(ctx, req.AudioURL, req.Duration, req.Title)
	if err != nil {
		return nil, err
	}

	return &model.StructureAnalyzeResponse{
		Sections:   sections,
		Recordable: model.FilterRecordable(sections),
	}, nil
}
