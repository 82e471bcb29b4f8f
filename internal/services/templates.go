package services

import (
	"fmt"

	"edu-alerts-backend/internal/models"

	"github.com/pkg/errors"
)

type alertTemplate struct {
	title   string
	message string
}

// Шаблоны по типу уведомления. Оба параметра: название экзамена и "N day(s)".
var alertTemplates = map[models.NotificationType]alertTemplate{
	models.NotificationTypeApplicationDeadline: {
		title:   "%s: application closes in %s",
		message: "The application window for %s closes in %s. Submit your form before the deadline.",
	},
	models.NotificationTypeExamDate: {
		title:   "%s: exam in %s",
		message: "%s is scheduled in %s. Check your admit card and exam centre details.",
	},
	models.NotificationTypeAdmitCard: {
		title:   "%s: admit card in %s",
		message: "Admit cards for %s will be released in %s. Keep your application number ready.",
	},
	models.NotificationTypeResultDate: {
		title:   "%s: results in %s",
		message: "Results for %s are expected in %s.",
	},
}

func dayCount(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// renderAlert строит заголовок и текст уведомления.
func renderAlert(t models.NotificationType, examName string, days int) (string, string, error) {
	tpl, ok := alertTemplates[t]
	if !ok {
		return "", "", errors.Errorf("no template for notification type %q", t)
	}
	left := dayCount(days)
	return fmt.Sprintf(tpl.title, examName, left), fmt.Sprintf(tpl.message, examName, left), nil
}
