package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"photodesk/internal/config"
	"photodesk/internal/textutil"
)

const userAgent = "photodesk/1.0"

// Delivery describes a completed customer delivery.
type Delivery struct {
	Customer string
	// Premium selects the premium tier label.
	Premium bool
	// Retouched marks the second (retouched) delivery.
	Retouched bool
	URL       string
}

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyDelivery(ctx context.Context, d Delivery) error
	NotifyAlert(ctx context.Context, location, detail string) error
	NotifyCleanup(ctx context.Context, deleted, failed int) error
	TestNotification(ctx context.Context) error
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type channel interface {
	name() string
	send(ctx context.Context, m message) error
}

// NewService builds a service over every configured channel. When no
// channel is configured a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var channels []channel
	if topic := strings.TrimSpace(n.NtfyTopic); topic != "" {
		channels = append(channels, &ntfyChannel{endpoint: topic, client: client})
	}
	if token, chat := strings.TrimSpace(n.TelegramToken), strings.TrimSpace(n.TelegramChatID); token != "" && chat != "" {
		channels = append(channels, &telegramChannel{
			baseURL: strings.TrimRight(n.TelegramBaseURL, "/"),
			token:   token,
			chatID:  chat,
			client:  client,
		})
	}
	if len(channels) == 0 {
		return noopService{}
	}
	return &dispatcher{
		channels:      channels,
		studio:        n.StudioName,
		retentionDays: cfg.Storage.RetentionDays,
		linkDays:      cfg.Storage.SignedURLDays,
		deliveries:    n.Deliveries,
		alerts:        n.Errors,
	}
}

type dispatcher struct {
	channels      []channel
	studio        string
	retentionDays int
	linkDays      int
	deliveries    bool
	alerts        bool
}

func (d *dispatcher) NotifyDelivery(ctx context.Context, del Delivery) error {
	if !d.deliveries {
		return nil
	}
	tier := textutil.Ternary(del.Premium, "프리미엄", "베이직")
	phase := textutil.Ternary(del.Retouched, "2차 (보정본)", "1차 (원본)")
	var b strings.Builder
	fmt.Fprintf(&b, "[%s 발송 알림]\n\n", d.studio)
	fmt.Fprintf(&b, "📍 고객명: %s\n", strings.TrimSpace(del.Customer))
	fmt.Fprintf(&b, "📁 분류: %s (%s)\n", tier, phase)
	fmt.Fprintf(&b, "🔗 다운로드: %s\n", strings.TrimSpace(del.URL))
	switch {
	case d.retentionDays > 0:
		fmt.Fprintf(&b, "⚠️ 만료일: 발송 후 %d일 이내 (이후 자동 삭제)\n", d.retentionDays)
	case d.linkDays > 0:
		fmt.Fprintf(&b, "⚠️ 만료일: 발송 후 %d일 이내 (다운로드 링크 만료)\n", d.linkDays)
	}
	b.WriteString("\n")
	b.WriteString("시트 업데이트 및 업로드가 완료되었습니다.")
	return d.broadcast(ctx, message{
		title: fmt.Sprintf("%s - 발송 완료", d.studio),
		body:  b.String(),
		tags:  []string{"photodesk", "delivery", textutil.Ternary(del.Retouched, "retouched", "original")},
	})
}

func (d *dispatcher) NotifyAlert(ctx context.Context, location, detail string) error {
	if !d.alerts {
		return nil
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = "unknown"
	}
	body := fmt.Sprintf("🚨 [%s 시스템 장애]\n\n📍 위치: %s\n❌ 내용: %s\n\n즉각적인 확인이 필요합니다.",
		d.studio, strings.TrimSpace(location), detail)
	return d.broadcast(ctx, message{
		title:    fmt.Sprintf("%s - 시스템 장애", d.studio),
		body:     body,
		tags:     []string{"photodesk", "error", "alert"},
		priority: "high",
	})
}

func (d *dispatcher) NotifyCleanup(ctx context.Context, deleted, failed int) error {
	if deleted == 0 && failed == 0 {
		return nil
	}
	body := fmt.Sprintf("🧹 Storage 정리: %d개 파일 삭제", deleted)
	if failed > 0 {
		body += fmt.Sprintf(", %d개 실패", failed)
	}
	return d.broadcast(ctx, message{
		title:    fmt.Sprintf("%s - Storage 정리", d.studio),
		body:     body,
		tags:     []string{"photodesk", "storage", "cleanup"},
		priority: "low",
	})
}

func (d *dispatcher) TestNotification(ctx context.Context) error {
	return d.broadcast(ctx, message{
		title:    fmt.Sprintf("%s - Test", d.studio),
		body:     "🧪 Notification system test",
		tags:     []string{"photodesk", "test"},
		priority: "low",
	})
}

// broadcast sends m to every channel and joins the failures.
func (d *dispatcher) broadcast(ctx context.Context, m message) error {
	var errs []error
	for _, ch := range d.channels {
		if err := ch.send(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.name(), err))
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) NotifyDelivery(context.Context, Delivery) error    { return nil }
func (noopService) NotifyAlert(context.Context, string, string) error { return nil }
func (noopService) NotifyCleanup(context.Context, int, int) error     { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
