// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает ежечасный аудит членства: держатели бонуса,
// покинувшие одну из групп, получают штраф, и флаг бонуса снимается.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/looteverything/rewardbot/internal/common"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/features/membership"
	"github.com/looteverything/rewardbot/internal/features/rewards"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	engine   *rewards.Engine
	verifier membership.Verifier
	cfg      *config.Config
	notify   func(userID int64, text string)
}

// NewScheduler создаёт планировщик задач.
func NewScheduler(engine *rewards.Engine, verifier membership.Verifier, cfg *config.Config, notify func(userID int64, text string)) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		engine:   engine,
		verifier: verifier,
		cfg:      cfg,
		notify:   notify,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.FeatureMembershipAudit {
		s.cron.AddFunc("0 * * * *", func() {
			log.Debug("[CRON] Аудит членства")
			if err := s.AuditMemberships(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка аудита членства")
			}
		})
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// AuditMemberships перепроверяет членство всех держателей бонуса.
// Штраф только при подтверждённом выходе (StatusNotMember);
// StatusUnknown никого не наказывает — недоступность проверки
// не повод списывать деньги. После штрафа флаг бонуса снимается,
// чтобы один выход наказывался один раз.
func (s *Scheduler) AuditMemberships(ctx context.Context) error {
	holders, err := s.engine.BonusHolders(ctx)
	if err != nil {
		return err
	}

	for _, acc := range holders {
		m1 := s.verifier.IsMember(ctx, s.cfg.Group1ChatID, acc.UserID)
		m2 := s.verifier.IsMember(ctx, s.cfg.Group2ChatID, acc.UserID)
		if m1 != membership.StatusNotMember && m2 != membership.StatusNotMember {
			continue
		}

		if _, err := s.engine.ApplyPenalty(ctx, acc.UserID, s.cfg.PenaltyPaise, "Штраф за выход из партнёрской группы"); err != nil {
			log.WithError(err).WithField("user_id", acc.UserID).Error("Не удалось применить штраф аудита")
			continue
		}
		if err := s.engine.RevokeJoinBonus(ctx, acc.UserID); err != nil {
			log.WithError(err).WithField("user_id", acc.UserID).Error("Не удалось снять флаг бонуса")
		}

		s.notify(acc.UserID, "⚠️ You left one of our groups, so a penalty of "+
			common.FormatRupees(s.cfg.PenaltyPaise)+" was applied.\nRejoin both groups to claim the bonus again!")

		log.WithField("user_id", acc.UserID).Info("Аудит: штраф за выход из группы")
	}

	return nil
}
