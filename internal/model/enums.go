package model

// Job kinds: one per external AI processing provider operation
type JobKind string

const (
	JobKindStructureAnalysis JobKind = "structure-analysis"
	JobKindSongGeneration    JobKind = "song-generation"
	JobKindVocalCleanup      JobKind = "vocal-cleanup"
	JobKindMultitrackMix     JobKind = "multitrack-mix"
	JobKindMastering         JobKind = "mastering"
)

var ValidJobKinds = []JobKind{
	JobKindStructureAnalysis, JobKindSongGeneration, JobKindVocalCleanup,
	JobKindMultitrackMix, JobKindMastering,
}

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job in this status will never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Section types
type SectionType string

const (
	SectionIntro  SectionType = "intro"
	SectionVerse  SectionType = "verse"
	SectionChorus SectionType = "chorus"
	SectionBridge SectionType = "bridge"
	SectionOutro  SectionType = "outro"
)

var ValidSectionTypes = []SectionType{
	SectionIntro, SectionVerse, SectionChorus, SectionBridge, SectionOutro,
}

// Valid reports whether t is one of the five recognized section labels.
func (t SectionType) Valid() bool {
	for _, v := range ValidSectionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Recordable reports whether the guided re-recording flow prompts for this
// section type. Intro/bridge/outro are recognized but not recorded.
func (t SectionType) Recordable() bool {
	return t == SectionVerse || t == SectionChorus
}

// Vocal gender hint for song generation
type VocalGender string

const (
	VocalGenderFemale VocalGender = "female"
	VocalGenderMale   VocalGender = "male"
	VocalGenderAny    VocalGender = "any"
)

// Mix modes for the multitrack-mix/master provider
type MixMode string

const (
	MixModeMix    MixMode = "mix"
	MixModeMaster MixMode = "master"
)
