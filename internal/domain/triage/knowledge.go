package triage

// KnowledgeEntry is one hand-authored condition profile. Keywords containing
// a space are matched as phrases against the raw text; the rest are matched
// as whole tokens.
type KnowledgeEntry struct {
	Name         string
	Keywords     []string
	Thresholds   map[Vital]float64
	BaseSeverity Severity
	CarePlan     []string
	Referral     Referral
	Medications  []string
}

// Declaration order is the tie-break order when scores are equal.
var knowledgeBase = []KnowledgeEntry{
	{
		Name:         "Uncomplicated Malaria",
		Keywords:     []string{"fever", "chills", "headache", "sweating", "body aches", "fatigue", "loss of appetite"},
		Thresholds:   map[Vital]float64{VitalTemperature: 38.0},
		BaseSeverity: SeverityRoutine,
		CarePlan: []string{
			"Confirm with malaria rapid diagnostic test or microscopy",
			"Give weight-based artemether-lumefantrine for 3 days",
			"Paracetamol for fever and encourage oral fluids",
			"Return immediately if vomiting, confusion or convulsions develop",
		},
		Referral:    Referral{Required: false, Reason: "Manage at primary care level"},
		Medications: []string{"Artemether-lumefantrine", "Paracetamol"},
	},
	{
		Name:         "Severe Malaria",
		Keywords:     []string{"fever", "convulsions", "confusion", "unable to drink", "dark urine", "jaundice", "vomiting", "difficulty breathing"},
		Thresholds:   map[Vital]float64{VitalTemperature: 39.0, VitalHeartRate: 120, VitalRespiratoryRate: 30, VitalSpO2: 94},
		BaseSeverity: SeverityEmergency,
		CarePlan: []string{
			"Give parenteral artesunate 2.4 mg/kg at 0, 12 and 24 hours",
			"Check blood glucose and correct hypoglycaemia",
			"Secure IV access and monitor fluid balance",
			"Switch to a full oral ACT course once oral intake is tolerated",
		},
		Referral:    Referral{Required: true, Facility: "Lagos University Teaching Hospital", Reason: "Parenteral artesunate and inpatient monitoring"},
		Medications: []string{"Artesunate IV/IM", "Dextrose 10%", "Paracetamol"},
	},
	{
		Name:         "Cholera",
		Keywords:     []string{"watery stool", "rice water", "diarrhea", "diarrhoea", "vomiting", "dehydration", "leg cramps", "sunken eyes"},
		Thresholds:   map[Vital]float64{VitalHeartRate: 110, VitalRespiratoryRate: 24},
		BaseSeverity: SeverityUrgent,
		CarePlan: []string{
			"Assess dehydration status and start rehydration immediately",
			"Give Ringer's lactate IV for severe dehydration",
			"Collect stool sample for rapid test and culture",
			"Notify the LGA disease surveillance officer",
		},
		Referral:    Referral{Required: true, Facility: "Infectious Disease Hospital, Yaba", Reason: "Cholera treatment unit with IV rehydration"},
		Medications: []string{"Oral rehydration salts", "Ringer's lactate", "Doxycycline", "Zinc sulfate"},
	},
	{
		Name:         "Lassa Fever",
		Keywords:     []string{"fever", "sore throat", "bleeding", "chest pain", "facial swelling", "rodent exposure", "muscle pain", "weakness"},
		Thresholds:   map[Vital]float64{VitalTemperature: 38.5, VitalHeartRate: 110},
		BaseSeverity: SeverityUrgent,
		CarePlan: []string{
			"Isolate the patient and apply strict barrier nursing",
			"Send blood for Lassa PCR",
			"Start IV fluids and monitor for bleeding",
			"Trace and list contacts",
		},
		Referral:    Referral{Required: true, Facility: "Irrua Specialist Teaching Hospital", Reason: "Isolation and ribavirin therapy"},
		Medications: []string{"Ribavirin IV", "IV fluids", "Paracetamol"},
	},
	{
		Name:         "Bacterial Meningitis",
		Keywords:     []string{"neck stiffness", "stiff neck", "headache", "fever", "photophobia", "confusion", "seizures", "purple rash"},
		Thresholds:   map[Vital]float64{VitalTemperature: 38.0, VitalHeartRate: 120, VitalRespiratoryRate: 28},
		BaseSeverity: SeverityEmergency,
		CarePlan: []string{
			"Give the first dose of IV ceftriaxone without delay",
			"Perform lumbar puncture if not contraindicated",
			"Start seizure precautions",
			"Notify surveillance for meningococcal contact prophylaxis",
		},
		Referral:    Referral{Required: true, Facility: "Lagos University Teaching Hospital", Reason: "Lumbar puncture and IV antibiotics"},
		Medications: []string{"Ceftriaxone IV", "Dexamethasone", "Paracetamol"},
	},
	{
		Name:         "Community-Acquired Pneumonia",
		Keywords:     []string{"cough", "fever", "chest pain", "shortness of breath", "difficulty breathing", "sputum", "fast breathing"},
		Thresholds:   map[Vital]float64{VitalTemperature: 38.5, VitalRespiratoryRate: 24, VitalSpO2: 94},
		BaseSeverity: SeverityUrgent,
		CarePlan: []string{
			"Request chest X-ray and full blood count",
			"Start oral amoxicillin, or IV antibiotics if unable to take orally",
			"Give oxygen to keep SpO2 at or above 94%",
		},
		Referral:    Referral{Required: true, Facility: "Ikeja General Hospital", Reason: "Chest imaging and oxygen therapy"},
		Medications: []string{"Amoxicillin", "Oxygen", "Paracetamol"},
	},
	{
		Name:         "Hypertensive Emergency",
		Keywords:     []string{"headache", "blurred vision", "chest pain", "confusion", "nosebleed", "shortness of breath", "dizziness"},
		Thresholds:   map[Vital]float64{VitalSystolicBP: 180, VitalDiastolicBP: 120},
		BaseSeverity: SeverityUrgent,
		CarePlan: []string{
			"Repeat blood pressure in both arms",
			"Lower mean arterial pressure by no more than 25% in the first hour",
			"Check ECG, urinalysis and renal function for end-organ damage",
		},
		Referral:    Referral{Required: true, Facility: "Lagos University Teaching Hospital", Reason: "IV antihypertensives and end-organ assessment"},
		Medications: []string{"Labetalol IV", "Hydralazine", "Amlodipine"},
	},
	{
		Name:         "Measles",
		Keywords:     []string{"rash", "fever", "cough", "red eyes", "runny nose", "koplik spots"},
		Thresholds:   map[Vital]float64{VitalTemperature: 38.5, VitalRespiratoryRate: 30},
		BaseSeverity: SeverityRoutine,
		CarePlan: []string{
			"Isolate from unvaccinated contacts",
			"Give vitamin A on two consecutive days",
			"Check vaccination status of household contacts",
		},
		Referral:    Referral{Required: false, Reason: "Isolate and manage at primary care level"},
		Medications: []string{"Vitamin A", "Paracetamol", "Oral rehydration salts"},
	},
	{
		Name:         "Acute Gastroenteritis",
		Keywords:     []string{"diarrhea", "vomiting", "abdominal pain", "nausea", "stomach pain", "cramps"},
		Thresholds:   map[Vital]float64{VitalTemperature: 38.5, VitalHeartRate: 110},
		BaseSeverity: SeverityRoutine,
		CarePlan: []string{
			"Oral rehydration with small frequent sips",
			"Give zinc for 10 to 14 days in children",
			"Advise on hand hygiene and safe water",
		},
		Referral:    Referral{Required: false, Reason: "Manage at primary care level"},
		Medications: []string{"Oral rehydration salts", "Zinc sulfate", "Ondansetron"},
	},
}

// KnowledgeBase returns a copy of the condition profiles in declaration order.
func KnowledgeBase() []KnowledgeEntry {
	out := make([]KnowledgeEntry, len(knowledgeBase))
	for i, e := range knowledgeBase {
		thresholds := make(map[Vital]float64, len(e.Thresholds))
		for k, v := range e.Thresholds {
			thresholds[k] = v
		}
		out[i] = KnowledgeEntry{
			Name:         e.Name,
			Keywords:     append([]string(nil), e.Keywords...),
			Thresholds:   thresholds,
			BaseSeverity: e.BaseSeverity,
			CarePlan:     append([]string(nil), e.CarePlan...),
			Referral:     e.Referral,
			Medications:  append([]string(nil), e.Medications...),
		}
	}
	return out
}
