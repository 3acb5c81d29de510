package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/tgpass/internal/app/api/server"
	"github.com/fatflowers/tgpass/internal/app/service/activation"
	"github.com/fatflowers/tgpass/internal/app/service/audit"
	"github.com/fatflowers/tgpass/internal/app/service/authz"
	"github.com/fatflowers/tgpass/internal/app/service/changelog"
	"github.com/fatflowers/tgpass/internal/app/service/lifecycle"
	notificationlog "github.com/fatflowers/tgpass/internal/app/service/notification_log"
	"github.com/fatflowers/tgpass/internal/app/service/order"
	"github.com/fatflowers/tgpass/internal/app/service/reconciler"
	"github.com/fatflowers/tgpass/internal/platform/razorpay"
	"github.com/fatflowers/tgpass/internal/platform/redislock"
	"github.com/fatflowers/tgpass/internal/platform/telegram"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	repository.Module,
	razorpay.Module,
	telegram.Module,
	redislock.Module,
	audit.Module,
	changelog.Module,
	notificationlog.Module,
	authz.Module,
	activation.Module,
	order.Module,
	lifecycle.Module,
	reconciler.Module,
	server.Module,
)
