// Package web — server.go: рекламный сервер на fiber.
// Отдаёт страницу рекламы для Mini App и принимает callback
// о завершённом просмотре, который и приводит к начислению.
package web

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/looteverything/rewardbot/internal/common"
	"github.com/looteverything/rewardbot/internal/config"
	"github.com/looteverything/rewardbot/internal/features/rewards"
)

//go:embed templates/ad.html
var adPageHTML string

var adPageTmpl = template.Must(template.New("ad").Parse(adPageHTML))

// Минимальное время просмотра до активации кнопки (секунды)
const minWatchSeconds = 15

// Notify доставляет пользователю сообщение в чат.
// Реализуется ботом (SendMessageToUser).
type Notify func(userID int64, text string)

// Server — HTTP-сервер рекламных страниц.
type Server struct {
	app     *fiber.App
	engine  *rewards.Engine
	catalog *config.AdCatalog
	tokens  *TokenStore
	notify  Notify
	cfg     *config.Config
}

// NewServer создаёт рекламный сервер и регистрирует маршруты.
func NewServer(engine *rewards.Engine, catalog *config.AdCatalog, tokens *TokenStore, notify Notify, cfg *config.Config) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "reward-bot ad server",
	})

	s := &Server{
		app:     app,
		engine:  engine,
		catalog: catalog,
		tokens:  tokens,
		notify:  notify,
		cfg:     cfg,
	}

	app.Get("/", s.handleHome)
	app.Get("/ad/:id", s.handleAdPage)
	app.Post("/api/ad/complete", s.handleAdComplete)

	return s
}

// Start блокирующе слушает настроенный порт.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.HTTPPort)
	log.WithField("addr", addr).Info("Рекламный сервер запущен")
	return s.app.Listen(addr)
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleHome — liveness-страница.
func (s *Server) handleHome(c *fiber.Ctx) error {
	return c.SendString("✅ Reward bot is running")
}

// handleAdPage отдаёт страницу рекламы внутри Mini App.
// Токен только проверяется: расходуется он на callback завершения,
// чтобы перезагрузка страницы не сжигала просмотр.
func (s *Server) handleAdPage(c *fiber.Ctx) error {
	adID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid Ad ID")
	}

	ad, ok := s.catalog.Get(adID)
	if !ok {
		return c.Status(fiber.StatusNotFound).SendString("Invalid Ad ID")
	}

	token := c.Query("token")
	userID := int64(c.QueryInt("uid"))
	if token == "" || userID == 0 || !s.tokens.Peek(token, userID, adID) {
		return c.Status(fiber.StatusForbidden).SendString("Ad session expired, request a new one in the bot")
	}

	var buf bytes.Buffer
	err = adPageTmpl.Execute(&buf, fiber.Map{
		"VideoURL":        ad.VideoURL,
		"GroupURL":        ad.GroupURL,
		"UserID":          userID,
		"AdID":            adID,
		"Token":           token,
		"MinWatchSeconds": minWatchSeconds,
	})
	if err != nil {
		log.WithError(err).Error("Ошибка рендера страницы рекламы")
		return c.Status(fiber.StatusInternalServerError).SendString("ERROR")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// completeRequest — тело callback'а о завершённом просмотре.
type completeRequest struct {
	UserID int64  `json:"user_id"`
	AdID   int    `json:"ad_id"`
	Token  string `json:"token"`
}

// completeResponse — ответ callback'а.
type completeResponse struct {
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
	AmountPaise  int64  `json:"amount_paise,omitempty"`
	BalancePaise int64  `json:"balance_paise,omitempty"`
}

// handleAdComplete расходует токен и начисляет награду.
// Уведомление уходит только после того, как начисление сохранено
// (движок возвращается лишь после записи в леджер).
func (s *Server) handleAdComplete(c *fiber.Ctx) error {
	var req completeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(completeResponse{OK: false, Error: "bad request"})
	}

	if !s.tokens.Consume(req.Token, req.UserID, req.AdID) {
		log.WithFields(log.Fields{
			"user_id": req.UserID,
			"ad_id":   req.AdID,
		}).Warn("Отклонён callback с недействительным токеном")
		return c.Status(fiber.StatusForbidden).JSON(completeResponse{OK: false, Error: common.ErrTokenInvalid.Error()})
	}

	amount, err := s.engine.CreditAdCompletion(c.Context(), req.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", req.UserID).Error("Ошибка начисления за рекламу")
		return c.Status(fiber.StatusInternalServerError).JSON(completeResponse{OK: false, Error: "storage fault"})
	}

	balance, err := s.engine.GetBalance(c.Context(), req.UserID)
	if err != nil {
		// Начисление уже сохранено, баланс в ответе просто не покажем
		log.WithError(err).Debug("Не удалось прочитать баланс для ответа")
	}

	s.notify(req.UserID, fmt.Sprintf(
		"🎉 You earned %s for watching the ad!\n💰 Balance: %s",
		common.FormatRupees(amount), common.FormatRupees(balance),
	))

	return c.JSON(completeResponse{OK: true, AmountPaise: amount, BalancePaise: balance})
}
