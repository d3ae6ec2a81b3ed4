package models

// FraudFlagThreshold is the score above which dashboards flag an application.
const FraudFlagThreshold = 20

// Count is one labelled bucket.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats is the dashboard summary of the applicant pool.
type Stats struct {
	Total      int     `json:"total"`
	ByStatus   []Count `json:"byStatus"`
	ByGender   []Count `json:"byGender"`
	ByProvince []Count `json:"byProvince"`
	Funnel     []Count `json:"funnel"`
	ExamScores []Count `json:"examScores"`
	Flagged    int     `json:"flagged"`
	Verified   int     `json:"verified"`
}

var scoreBins = []struct {
	label    string
	low, high int
}{
	{"0-20", 0, 20},
	{"21-40", 21, 40},
	{"41-60", 41, 60},
	{"61-80", 61, 80},
	{"81-100", 81, 100},
}

// ComputeStats builds dashboard counts. Funnel stages count applicants that
// reached the stage even if later rejected, using the recorded exam score and
// interview booking where the status alone no longer tells.
func ComputeStats(list []Applicant) Stats {
	st := Stats{Total: len(list)}

	statusCounts := make(map[Status]int)
	genderCounts := make(map[Gender]int)
	var provinces []string
	provinceCounts := make(map[string]int)
	funnel := make([]int, 5)
	bins := make([]int, len(scoreBins))

	for i := range list {
		a := &list[i]
		statusCounts[a.Status]++
		genderCounts[a.Gender]++
		if _, seen := provinceCounts[a.Province]; !seen {
			provinces = append(provinces, a.Province)
		}
		provinceCounts[a.Province]++

		if a.FraudScore > FraudFlagThreshold {
			st.Flagged++
		}
		if a.IsVerified(CheckIdentity) && a.IsVerified(CheckEducation) && a.IsVerified(CheckCriminal) {
			st.Verified++
		}

		funnel[0]++
		if a.Status.HasReached(StatusInvitedForExam) || a.ExamScore != nil {
			funnel[1]++
		}
		if a.ExamScore != nil {
			funnel[2]++
			for b, bin := range scoreBins {
				if *a.ExamScore >= bin.low && *a.ExamScore <= bin.high {
					bins[b]++
					break
				}
			}
		}
		if a.Status.HasReached(StatusInvitedInterview) || a.InterviewDate != nil {
			funnel[3]++
		}
		if a.Status == StatusSelected {
			funnel[4]++
		}
	}

	for _, s := range AllStatuses() {
		st.ByStatus = append(st.ByStatus, Count{Label: string(s), Count: statusCounts[s]})
	}
	for _, g := range []Gender{GenderMale, GenderFemale} {
		st.ByGender = append(st.ByGender, Count{Label: string(g), Count: genderCounts[g]})
	}
	for _, p := range provinces {
		st.ByProvince = append(st.ByProvince, Count{Label: p, Count: provinceCounts[p]})
	}
	for i, label := range []string{"Applied", "Exam Invited", "Exam Taken", "Interview", "Selected"} {
		st.Funnel = append(st.Funnel, Count{Label: label, Count: funnel[i]})
	}
	for i, bin := range scoreBins {
		st.ExamScores = append(st.ExamScores, Count{Label: bin.label, Count: bins[i]})
	}
	return st
}
