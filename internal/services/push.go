package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/models"
)

// PushService relays journaling reminders and test pushes through AWS
// SNS platform endpoints. Device tokens are stored hashed; only the SNS
// endpoint ARN is kept in the clear.
type PushService struct {
	sns         *awssns.Client
	platformARN string
}

// NewPushService builds the SNS client from the ambient AWS config.
func NewPushService(ctx context.Context, region, platformARN string) (*PushService, error) {
	if platformARN == "" {
		return nil, errors.New("SNS platform ARN not set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &PushService{
		sns:         awssns.NewFromConfig(cfg),
		platformARN: platformARN,
	}, nil
}

func tokenHash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func normalizePlatform(platform string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(platform)); p {
	case "android", "ios", "web":
		return p, nil
	default:
		return "", errors.New("unknown platform")
	}
}

// RegisterDevice creates (or refreshes) an SNS endpoint for a device
// token and upserts the device row keyed by (user_id, token_hash).
func (p *PushService) RegisterDevice(ctx context.Context, userID uuid.UUID, platform, token string) (*models.PushDevice, error) {
	plat, err := normalizePlatform(platform)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("device token is required")
	}

	out, err := p.sns.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(p.platformARN),
		Token:                  aws.String(token),
	})
	if err != nil {
		return nil, err
	}

	dev := &models.PushDevice{
		UserID:      userID,
		Platform:    plat,
		TokenHash:   tokenHash(token),
		EndpointARN: aws.ToString(out.EndpointArn),
		Enabled:     true,
	}

	err = database.PostgresDB.QueryRow(`
		INSERT INTO push_devices (user_id, platform, token_hash, endpoint_arn, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		ON CONFLICT (user_id, token_hash) DO UPDATE SET
			platform = $2,
			endpoint_arn = $4,
			enabled = TRUE,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, userID, dev.Platform, dev.TokenHash, dev.EndpointARN).Scan(&dev.ID, &dev.CreatedAt, &dev.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return dev, nil
}

// ListDevices returns the user's registered devices.
func ListDevices(ctx context.Context, userID uuid.UUID) ([]models.PushDevice, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT id, user_id, platform, enabled, created_at, updated_at
		FROM push_devices
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]models.PushDevice, 0)
	for rows.Next() {
		var d models.PushDevice
		if err := rows.Scan(&d.ID, &d.UserID, &d.Platform, &d.Enabled, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// DeleteDevice removes a device registration owned by the user.
func DeleteDevice(ctx context.Context, userID, deviceID uuid.UUID) error {
	res, err := database.PostgresDB.ExecContext(ctx, `
		DELETE FROM push_devices WHERE id = $1 AND user_id = $2
	`, deviceID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PushToUser publishes a notification to all of a user's enabled devices.
// Best-effort: a failed endpoint is logged and skipped.
func (p *PushService) PushToUser(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT endpoint_arn FROM push_devices WHERE user_id = $1 AND enabled = TRUE
	`, userID)
	if err != nil {
		return
	}
	defer rows.Close()

	var endpoints []string
	for rows.Next() {
		var arn string
		if err := rows.Scan(&arn); err == nil {
			endpoints = append(endpoints, arn)
		}
	}
	if len(endpoints) == 0 {
		return
	}

	msg := map[string]any{
		"default": body,
		"GCM": map[string]any{
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
		},
	}
	raw, _ := json.Marshal(msg)

	for _, arn := range endpoints {
		_, err := p.sns.Publish(ctx, &awssns.PublishInput{
			MessageStructure: aws.String("json"),
			Message:          aws.String(string(raw)),
			TargetArn:        aws.String(arn),
		})
		if err != nil {
			log.Printf("push publish failed for endpoint: %v", err)
		}
	}
}

// GetReminderPrefs returns the user's reminder preference, defaulting to
// disabled at 18:00 UTC when no row exists.
func GetReminderPrefs(ctx context.Context, userID uuid.UUID) (models.ReminderPrefs, error) {
	prefs := models.ReminderPrefs{UserID: userID, Enabled: false, HourUTC: 18}

	var lastSent sql.NullTime
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT enabled, hour_utc, last_sent_at FROM reminder_prefs WHERE user_id = $1
	`, userID).Scan(&prefs.Enabled, &prefs.HourUTC, &lastSent)
	if err == sql.ErrNoRows {
		return prefs, nil
	}
	if err != nil {
		return prefs, err
	}
	if lastSent.Valid {
		t := lastSent.Time
		prefs.LastSentAt = &t
	}
	return prefs, nil
}

// SetReminderPrefs upserts the user's reminder preference.
func SetReminderPrefs(ctx context.Context, userID uuid.UUID, enabled bool, hourUTC int) error {
	if hourUTC < 0 || hourUTC > 23 {
		return errors.New("hour_utc must be 0-23")
	}
	_, err := database.PostgresDB.ExecContext(ctx, `
		INSERT INTO reminder_prefs (user_id, enabled, hour_utc, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = $2,
			hour_utc = $3,
			updated_at = NOW()
	`, userID, enabled, hourUTC)
	return err
}

// markReminderSent records that today's reminder went out.
func markReminderSent(ctx context.Context, userID uuid.UUID, at time.Time) {
	_, _ = database.PostgresDB.ExecContext(ctx, `
		UPDATE reminder_prefs SET last_sent_at = $2 WHERE user_id = $1
	`, userID, at.UTC())
}
