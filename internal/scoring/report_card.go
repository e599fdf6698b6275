package scoring

import "github.com/LDThien999/ptitclassroom-score-api/internal/models"

// BuildReportCard groups a student's records by classroom and computes the
// strict composite of each. Classrooms missing from the catalogue are skipped.
// Subjects follow the order in which their classroom first appears.
func BuildReportCard(username string, records []models.ScoreRecord, classrooms []models.Classroom) models.StudentReportCard {
	catalogue := make(map[models.ID]models.Classroom, len(classrooms))
	for _, c := range classrooms {
		catalogue[c.ID] = c
	}

	order := make([]models.ID, 0)
	byClassroom := make(map[models.ID][]models.ScoreRecord)
	for _, rec := range records {
		if _, seen := byClassroom[rec.ClassroomID]; !seen {
			order = append(order, rec.ClassroomID)
		}
		byClassroom[rec.ClassroomID] = append(byClassroom[rec.ClassroomID], rec)
	}

	card := models.StudentReportCard{Username: username, Subjects: make([]models.SubjectScore, 0, len(order))}
	for _, classroomID := range order {
		classroom, ok := catalogue[classroomID]
		if !ok {
			continue
		}
		// one student per slice, so one composite at most
		scoped := byClassroom[classroomID]
		for i := range scoped {
			scoped[i].StudentID = ""
			scoped[i].StudentUsername = username
		}
		composites := AggregateComposites(scoped, models.PolicyStrict)
		line := models.SubjectScore{Subject: classroom.Subject, ClassroomID: classroomID}
		if len(composites) > 0 {
			c := composites[0]
			line.Regular1, line.Regular2 = c.Regular1, c.Regular2
			line.Midterm, line.Final, line.Average = c.Midterm, c.Final, c.Average
		}
		card.Subjects = append(card.Subjects, line)
	}
	return card
}
