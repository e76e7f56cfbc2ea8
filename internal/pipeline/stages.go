package pipeline

import (
	"fmt"

	"github.com/vocalbooth/api/internal/model"
)

// Hosted function names. Submit and poll go to the same function; the
// payload (source URLs vs. task identifier) tells the provider which is which.
const (
	FunctionCleanVocals  = "clean-vocals"
	FunctionMixTracks    = "mix-tracks"
	FunctionGenerateSong = "generate-song"
)

// ProductionStages builds the vocal production run: clean the raw vocal, mix
// it with the instrumental, and optionally master the result. The mix stage
// consumes the cleaned vocal (stage 1 output); the master stage re-submits
// the same pair in master mode.
func ProductionStages(p *model.ProduceJobPayload) []Stage {
	stages := []Stage{
		{
			Name:           "Cleaning vocals",
			Kind:           model.JobKindVocalCleanup,
			SubmitFunction: FunctionCleanVocals,
			PollFunction:   FunctionCleanVocals,
			Payload: func(prior []model.AudioAsset) (map[string]interface{}, error) {
				return map[string]interface{}{"audioUrl": p.VocalURL}, nil
			},
		},
		{
			Name:           "Mixing tracks",
			Kind:           model.JobKindMultitrackMix,
			SubmitFunction: FunctionMixTracks,
			PollFunction:   FunctionMixTracks,
			Payload: func(prior []model.AudioAsset) (map[string]interface{}, error) {
				if len(prior) < 1 {
					return nil, fmt.Errorf("mix stage requires the cleaned vocal")
				}
				return map[string]interface{}{
					"vocalUrl":        prior[0].URL,
					"instrumentalUrl": p.InstrumentalURL,
					"mode":            string(model.MixModeMix),
				}, nil
			},
		},
	}

	if p.Master {
		stages = append(stages, Stage{
			Name:           "Mastering",
			Kind:           model.JobKindMastering,
			SubmitFunction: FunctionMixTracks,
			PollFunction:   FunctionMixTracks,
			Payload: func(prior []model.AudioAsset) (map[string]interface{}, error) {
				if len(prior) < 1 {
					return nil, fmt.Errorf("master stage requires the cleaned vocal")
				}
				return map[string]interface{}{
					"vocalUrl":        prior[0].URL,
					"instrumentalUrl": p.InstrumentalURL,
					"mode":            string(model.MixModeMaster),
				}, nil
			},
		})
	}

	return stages
}

// GenerationStages builds the single-stage run that turns a raw vocal
// recording into a full AI-generated song.
func GenerationStages(p *model.ProduceJobPayload) []Stage {
	gender := p.VocalGender
	if gender == "" {
		gender = model.VocalGenderAny
	}

	return []Stage{
		{
			Name:           "Generating song",
			Kind:           model.JobKindSongGeneration,
			SubmitFunction: FunctionGenerateSong,
			PollFunction:   FunctionGenerateSong,
			Payload: func(prior []model.AudioAsset) (map[string]interface{}, error) {
				return map[string]interface{}{
					"audioUrls":    []string{p.VocalURL},
					"title":        p.SongName,
					"style":        p.Style,
					"negativeTags": p.NegativeTags,
					"vocalGender":  string(gender),
				}, nil
			},
		},
	}
}

// StagesFor selects the stage list for a payload's mode.
func StagesFor(p *model.ProduceJobPayload) ([]Stage, error) {
	switch p.Mode {
	case model.ProduceModeGenerate:
		return GenerationStages(p), nil
	case model.ProduceModeProduce, "":
		return ProductionStages(p), nil
	default:
		return nil, fmt.Errorf("unknown produce mode %q", p.Mode)
	}
}
