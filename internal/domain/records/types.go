package records

type RecordType string

const (
	RecordTypeNote         RecordType = "NOTE"
	RecordTypeMedicalVisit RecordType = "MEDICAL_VISIT"
	RecordTypeDiagnosis    RecordType = "DIAGNOSIS"
	RecordTypePrescription RecordType = "PRESCRIPTION"
	RecordTypeLabResult    RecordType = "LAB_RESULT"
	RecordTypeImmunization RecordType = "IMMUNIZATION"
	RecordTypeVitalSigns   RecordType = "VITAL_SIGNS"
)

func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeNote, RecordTypeMedicalVisit, RecordTypeDiagnosis,
		RecordTypePrescription, RecordTypeLabResult, RecordTypeImmunization,
		RecordTypeVitalSigns:
		return true
	default:
		return false
	}
}

type AuthorType string

const (
	AuthorTypePatient  AuthorType = "PATIENT"
	AuthorTypeProvider AuthorType = "PROVIDER"
)

type Source string

const (
	SourceManual      Source = "manual"
	SourceIntegration Source = "integration"
)

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)
