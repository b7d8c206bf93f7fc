package runbooks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	u "github.com/mpvl/unique"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/helpers"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/batch"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/intune"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/sinks"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// DeviceSyncReminders triggers an Intune check-in on devices that have not
// synced recently and mails their primary users a reminder. Recipients are
// deduplicated across a user's devices so nobody is mailed twice in one run.
type DeviceSyncReminders struct{}

var (
	StaleDaysOpt = types.Option{
		Name:        "stale-days",
		Description: "Only devices that have not synced for at least this many days",
		Default:     "7",
		Value:       "7",
		Type:        types.Int,
	}

	GroupIDOpt = types.Option{
		Name:        "group-id",
		Description: "Scope to devices whose primary user is a member of this group",
		Type:        types.String,
	}

	MailSenderOpt = types.Option{
		Name:        "mail-sender",
		Description: "Mailbox the reminder mail is sent as; empty disables mail",
		Type:        types.String,
	}

	OSOpt = types.Option{
		Name:        "os",
		Description: "Only devices running this operating system, e.g. Windows",
		Type:        types.String,
	}
)

func (r *DeviceSyncReminders) Metadata() Metadata {
	return Metadata{
		Name:        "device-sync-reminders",
		Description: "Trigger a sync on stale Intune devices and mail their primary users",
		Mutating:    true,
		References: []string{
			"https://learn.microsoft.com/en-us/graph/api/intune-devices-manageddevice-syncdevice",
			"https://learn.microsoft.com/en-us/graph/api/user-sendmail",
		},
	}
}

func (r *DeviceSyncReminders) Options() []*types.Option {
	return CloneOptions(&StaleDaysOpt, &GroupIDOpt, &MailSenderOpt, &OSOpt)
}

func (r *DeviceSyncReminders) Run(ctx context.Context, env *Env) (*batch.RunStatistics, error) {
	staleDays := env.OptionInt(StaleDaysOpt.Name, 7)

	devices, err := intune.ListManagedDevices(ctx, env.Graph, intune.DeviceFilter{
		OS:        env.OptionValue(OSOpt.Name),
		StaleDays: staleDays,
	})
	if err != nil {
		return nil, err
	}

	if groupID := env.OptionValue(GroupIDOpt.Name); groupID != "" {
		devices, err = r.scopeToGroup(ctx, env, devices, groupID)
		if err != nil {
			return nil, err
		}
	}

	env.Logger.Info("collected stale devices", "devices", len(devices), "stale_days", staleDays)

	var mailer *sinks.Mailer
	pending := map[string]bool{}
	if sender := env.OptionValue(MailSenderOpt.Name); sender != "" {
		svc, err := helpers.NewGraphServiceClient(env.Credential)
		if err != nil {
			return nil, err
		}
		mailer = sinks.NewMailer(svc, sender, env.DryRun)
		pending = pendingRecipients(devices)
	}

	size, delay := env.BatchSettings()
	processor := batch.NewProcessor[types.ManagedDevice](size, delay)
	processor.Logger = env.Logger

	return processor.Run(ctx, devices, func(ctx context.Context, device types.ManagedDevice, stats *batch.RunStatistics) error {
		stats.IncrementCategory("os_" + osKey(device.OperatingSystem))

		if env.DryRun {
			env.Logger.Info("dry-run: would sync device",
				"device", device.DeviceName,
				"id", device.ID,
				"last_sync", device.LastSyncDateTime)
			stats.Succeeded++
			return nil
		}

		if err := intune.SyncDevice(ctx, env.Graph, device.ID); err != nil {
			return fmt.Errorf("failed to sync device %s: %w", device.DeviceName, err)
		}
		stats.Succeeded++

		recipient := strings.ToLower(device.EmailAddress)
		if mailer != nil && pending[recipient] {
			subject := "Your device needs to check in with Intune"
			body := reminderBody(device, staleDays)
			if err := mailer.Send(ctx, []string{device.EmailAddress}, subject, body); err != nil {
				return fmt.Errorf("failed to mail %s: %w", recipient, err)
			}
			delete(pending, recipient)
			stats.IncrementCategory("reminders_sent")
		}

		return nil
	})
}

// scopeToGroup keeps only devices whose primary user is a member of groupID.
func (r *DeviceSyncReminders) scopeToGroup(ctx context.Context, env *Env, devices []types.ManagedDevice, groupID string) ([]types.ManagedDevice, error) {
	svc, err := helpers.NewGraphServiceClient(env.Credential)
	if err != nil {
		return nil, err
	}

	memberIDs, err := intune.ListGroupMemberIDs(ctx, svc, groupID)
	if err != nil {
		return nil, err
	}

	members := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = true
	}

	scoped := devices[:0]
	for _, device := range devices {
		if members[device.UserID] {
			scoped = append(scoped, device)
		}
	}

	slog.Debug("scoped devices to group", "group", groupID, "devices", len(scoped))
	return scoped, nil
}

// pendingRecipients builds the deduplicated set of primary-user mailboxes
// across the working set. Each address is mailed at most once per run, on
// the first of its devices the batch reaches.
func pendingRecipients(devices []types.ManagedDevice) map[string]bool {
	var addresses []string
	for _, device := range devices {
		if device.EmailAddress != "" {
			addresses = append(addresses, strings.ToLower(device.EmailAddress))
		}
	}

	r := u.StringSlice{P: &addresses}
	u.Sort(r)
	u.Strings(r.P)

	pending := make(map[string]bool, len(addresses))
	for _, address := range addresses {
		pending[address] = true
	}
	return pending
}

func reminderBody(device types.ManagedDevice, staleDays int) string {
	return fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>Your device <b>%s</b> has not checked in with Intune for more than %d days. "+
			"A sync has been requested; please connect the device to the internet and leave it powered on so it can complete.</p>"+
			"<p>This is an automated message.</p>",
		device.UserDisplayName, device.DeviceName, staleDays)
}

func osKey(operatingSystem string) string {
	key := strings.ToLower(strings.TrimSpace(operatingSystem))
	if key == "" {
		return "unknown"
	}
	return strings.ReplaceAll(key, " ", "_")
}
