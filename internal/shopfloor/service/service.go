package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-shopfloor/internal/config"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/handoff"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/metrics"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/storage"
	"go.uber.org/zap"
)

// ErrInvalidInput 请求参数校验失败（在发起后端请求之前）
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// isAuth 登录缺失或失效
func isAuth(err error) bool {
	return errors.Is(err, backend.ErrUnauthorized) ||
		errors.Is(err, auth.ErrNoSession) ||
		errors.Is(err, auth.ErrSessionExpired)
}

// Services 服务集合
type Services struct {
	Auth       *AuthService
	Queue      *QueueService
	Order      *OrderService
	Status     *StatusService
	Handoff    *handoff.Workflow
	Drawing    *DrawingService
	Export     *ExportService
	MasterData *MasterDataService
}

// NewServices 创建服务集合；objects 为 nil 时附件走后端上传
func NewServices(client *backend.Client, objects *storage.ObjectStore, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := storage.NewFetcher(client, objects, cfg.Overlay.MaxPDFSize)
	workflow := handoff.NewWorkflow(client, logger.Named("handoff"), m, cfg.Handoff.SeedFromUpstream)

	return &Services{
		Auth:       NewAuthService(client),
		Queue:      NewQueueService(client, logger.Named("queue")),
		Order:      NewOrderService(client),
		Status:     NewStatusService(client, objects),
		Handoff:    workflow,
		Drawing:    NewDrawingService(client, fetcher, workflow, cfg.Overlay, m, logger.Named("drawing")),
		Export:     NewExportService(client, m, logger.Named("export")),
		MasterData: NewMasterDataService(client),
	}
}
