package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/interfaces"
	"github.com/natek434/gardenit/models"
)

// suppressionNote replaces a reminder's details when a weather rule
// pushes it out of the rainy window.
const suppressionNote = "Rescheduled automatically: the forecast makes this task unnecessary for now."

// ActionService executes the actions a fired rule produces: notify
// (with throttle dedup), suppress upcoming tasks, build a digest, or
// escalate. Notifications are the only records it creates; reminders
// are the only records it mutates.
type ActionService struct {
	notifications interfaces.NotificationStore
	reminders     interfaces.ReminderStore
	beds          interfaces.BedStore
	mailer        interfaces.Mailer
}

func NewActionService(
	notifications interfaces.NotificationStore,
	reminders interfaces.ReminderStore,
	beds interfaces.BedStore,
	mailer interfaces.Mailer,
) *ActionService {
	return &ActionService{
		notifications: notifications,
		reminders:     reminders,
		beds:          beds,
		mailer:        mailer,
	}
}

// Notify persists a notification for (user, rule) unless one already
// exists within the rule's throttle window. Dedup keys purely on
// rule+user+time window, never on payload content. When the channel is
// email or push the message also goes out through the mailer; push has
// no distinct transport and rides the same channel.
func (as *ActionService) Notify(
	ctx context.Context,
	ref time.Time,
	user models.User,
	rule *models.NotificationRule,
	action models.NotifyAction,
	meta map[string]interface{},
) (*models.Notification, error) {
	if rule != nil {
		since := ref.Add(-rule.Throttle())
		existing, err := as.notifications.FindRecentByRule(ctx, user.ID, rule.ID, since)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			logrus.Debugf("Rule %s throttled for user %s", rule.Name, user.ID.Hex())
			return existing, nil
		}
	}

	notification := &models.Notification{
		UserID:   user.ID,
		Title:    action.Title,
		Body:     action.Body,
		Severity: action.Severity,
		Channel:  action.Channel,
		DueAt:    ref,
		Meta:     meta,
	}
	if rule != nil {
		ruleID := rule.ID
		notification.RuleID = &ruleID
	}

	if err := as.notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	if action.Channel == models.ChannelEmail || action.Channel == models.ChannelPush {
		// Delivery and persistence are deliberately non-transactional:
		// in-app visibility must not depend on email success.
		if err := as.mailer.Deliver(ctx, user.Email, action.Title, action.Body); err != nil {
			logrus.Errorf("Failed to deliver notification to %s: %v", user.Email, err)
		}
	}

	return notification, nil
}

// Escalate dispatches like notify but forces critical severity and
// marks the notification as escalated.
func (as *ActionService) Escalate(
	ctx context.Context,
	ref time.Time,
	user models.User,
	rule *models.NotificationRule,
	action models.EscalateAction,
	meta map[string]interface{},
) (*models.Notification, error) {
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["escalated"] = true

	return as.Notify(ctx, ref, user, rule, models.NotifyAction{
		Title:    action.Title,
		Body:     action.Body,
		Severity: models.SeverityCritical,
		Channel:  action.Channel,
	}, meta)
}

// SuppressTasks reschedules the user's reminders of the given type due
// within [ref, ref+dueWithinHours) to ref + (dueWithinHours+24)h and
// overwrites their details with the suppression note.
func (as *ActionService) SuppressTasks(
	ctx context.Context,
	ref time.Time,
	uctx *UserContext,
	action models.SuppressTasksAction,
) (int, error) {
	window := time.Duration(action.DueWithinHours * float64(time.Hour))
	cutoff := ref.Add(window)
	newDue := ref.Add(window + 24*time.Hour)

	suppressed := 0
	for _, reminder := range uctx.Reminders {
		if !strings.EqualFold(reminder.Type, action.TaskType) {
			continue
		}
		if reminder.DueAt.Before(ref) || !reminder.DueAt.Before(cutoff) {
			continue
		}

		if err := as.reminders.Reschedule(ctx, reminder.ID, newDue, suppressionNote); err != nil {
			return suppressed, err
		}
		suppressed++
	}

	if suppressed > 0 {
		logrus.Infof("Suppressed %d %q reminders for user %s", suppressed, action.TaskType, uctx.User.ID.Hex())
	}
	return suppressed, nil
}

// Digest builds the daily digest body from the user's focus items and
// upcoming reminders and sends it by email. Digest is email-only.
func (as *ActionService) Digest(
	ctx context.Context,
	ref time.Time,
	uctx *UserContext,
	rule *models.NotificationRule,
) (*models.Notification, error) {
	if rule != nil {
		since := ref.Add(-rule.Throttle())
		existing, err := as.notifications.FindRecentByRule(ctx, uctx.User.ID, rule.ID, since)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	body := as.buildDigestBody(ctx, ref, uctx)
	title := "Your garden digest"

	notification := &models.Notification{
		UserID:   uctx.User.ID,
		Title:    title,
		Body:     body,
		Severity: models.SeverityInfo,
		Channel:  models.ChannelEmail,
		DueAt:    ref,
	}
	if rule != nil {
		ruleID := rule.ID
		notification.RuleID = &ruleID
	}

	if err := as.notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	if err := as.mailer.Deliver(ctx, uctx.User.Email, title, body); err != nil {
		logrus.Errorf("Failed to deliver digest to %s: %v", uctx.User.Email, err)
	}

	return notification, nil
}

func (as *ActionService) buildDigestBody(ctx context.Context, ref time.Time, uctx *UserContext) string {
	var sections []string

	if focus := as.renderFocusItems(ctx, uctx); focus != "" {
		sections = append(sections, focus)
	}

	if upcoming := renderUpcomingReminders(ref, uctx.Reminders); upcoming != "" {
		sections = append(sections, upcoming)
	}

	if len(sections) == 0 {
		return "Nothing on the radar today. Enjoy your garden!"
	}
	return strings.Join(sections, "\n\n")
}

func (as *ActionService) renderFocusItems(ctx context.Context, uctx *UserContext) string {
	var lines []string
	for _, item := range uctx.FocusItems {
		switch item.Kind {
		case models.FocusPlanting:
			if p := uctx.PlantingByID(item.TargetID); p != nil {
				lines = append(lines, fmt.Sprintf("• %s in %s, %s (planted %s)",
					p.CommonName, p.BedName, p.GardenName, p.StartDate.Format("Jan 2")))
			}

		case models.FocusBed:
			bed, err := as.beds.GetBedByID(ctx, item.TargetID)
			if err != nil {
				logrus.Debugf("Digest skipping unknown bed %s: %v", item.TargetID.Hex(), err)
				continue
			}
			lines = append(lines, fmt.Sprintf("• %s — %s", bed.Name, bed.GardenName))

		case models.FocusPlant:
			if name, ok := uctx.PlantNames[item.TargetID]; ok {
				lines = append(lines, "• "+name)
			}

		case models.FocusTask:
			if r := uctx.ReminderByID(item.TargetID); r != nil {
				lines = append(lines, fmt.Sprintf("• %s (due %s)", r.Title, r.DueAt.Format("Jan 2 15:04")))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func renderUpcomingReminders(ref time.Time, reminders []models.Reminder) string {
	cutoff := ref.Add(24 * time.Hour)

	var upcoming []models.Reminder
	for _, r := range reminders {
		if !r.DueAt.Before(ref) && r.DueAt.Before(cutoff) {
			upcoming = append(upcoming, r)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].DueAt.Before(upcoming[j].DueAt)
	})

	var lines []string
	for _, r := range upcoming {
		lines = append(lines, fmt.Sprintf("• %s (due %s)", r.Title, r.DueAt.Format("Jan 2 15:04")))
	}
	return strings.Join(lines, "\n")
}
