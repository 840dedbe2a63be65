package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/metrics"
	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
)

// codeAlphabet deliberately omits ambiguous characters (0/O, 1/I/L)
// so codes can be read off a printed card.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codePrefix   = "FURAHA-"

	maxCodeRetries = 5
	maxBatchSize   = 500
)

var ErrBatchTooLarge = fmt.Errorf("voucher batch size exceeds %d", maxBatchSize)

type VoucherService struct {
	repo     *repository.Repository
	grantSvc *GrantService
	log      *zap.SugaredLogger
}

func NewVoucherService(repo *repository.Repository, grantSvc *GrantService, log *zap.SugaredLogger) *VoucherService {
	return &VoucherService{repo: repo, grantSvc: grantSvc, log: log}
}

// Generate creates a batch of vouchers for a package. Code collisions
// are retried; two vouchers can never share a code.
func (s *VoucherService) Generate(ctx context.Context, packageID uuid.UUID, count int) ([]model.Voucher, error) {
	if count <= 0 {
		count = 1
	}
	if count > maxBatchSize {
		return nil, ErrBatchTooLarge
	}
	if _, err := s.repo.GetPackage(ctx, packageID); err != nil {
		return nil, err
	}

	vouchers := make([]model.Voucher, 0, count)
	for i := 0; i < count; i++ {
		v := &model.Voucher{
			PackageID: packageID,
			Status:    model.VoucherStatusUnused,
		}
		var err error
		for attempt := 0; attempt < maxCodeRetries; attempt++ {
			v.Code, err = newVoucherCode()
			if err != nil {
				return nil, err
			}
			err = s.repo.CreateVoucher(ctx, v)
			if err == nil || !errors.Is(err, repository.ErrVoucherCodeTaken) {
				break
			}
		}
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, *v)
	}
	s.log.Infof("[Voucher] Generated %d vouchers for package %s", len(vouchers), packageID)
	return vouchers, nil
}

// Redeem consumes a voucher and issues its grant. The consume is a
// single guarded update, so two devices racing on the same code get
// exactly one winner; the loser sees ErrVoucherAlreadyUsed. The grant
// clock starts at redemption, not at generation.
func (s *VoucherService) Redeem(ctx context.Context, req model.RedeemVoucherRequest) (*model.AccessGrant, error) {
	voucher, err := s.repo.ConsumeVoucher(ctx, req.Code, req.DeviceMAC)
	if errors.Is(err, repository.ErrVoucherAlreadyUsed) {
		return s.resumeRedeem(ctx, voucher, req)
	}
	if err != nil {
		return nil, err
	}

	routerID, err := s.resolveRouter(ctx, req.RouterID)
	if err != nil {
		return nil, err
	}

	metrics.VouchersRedeemed.Inc()
	s.log.Infof("[Voucher] Code %s redeemed by %s", voucher.Code, req.DeviceMAC)

	return s.grantSvc.IssueForVoucher(ctx, voucher, routerID)
}

// resumeRedeem finishes a redemption that consumed the code but crashed
// before the grant was written. Only the device the code is bound to may
// resume; everyone else sees the code as used.
func (s *VoucherService) resumeRedeem(ctx context.Context, voucher *model.Voucher, req model.RedeemVoucherRequest) (*model.AccessGrant, error) {
	if voucher == nil || voucher.BoundMAC == nil || *voucher.BoundMAC != req.DeviceMAC {
		return nil, repository.ErrVoucherAlreadyUsed
	}

	_, err := s.repo.GetGrantByVoucher(ctx, voucher.ID)
	if err == nil {
		return nil, repository.ErrVoucherAlreadyUsed
	}
	if !errors.Is(err, repository.ErrGrantNotFound) {
		return nil, err
	}

	routerID, err := s.resolveRouter(ctx, req.RouterID)
	if err != nil {
		return nil, err
	}

	s.log.Warnf("[Voucher] Resuming interrupted redemption of %s for %s", voucher.Code, req.DeviceMAC)
	return s.grantSvc.IssueForVoucher(ctx, voucher, routerID)
}

func (s *VoucherService) resolveRouter(ctx context.Context, routerID *uuid.UUID) (uuid.UUID, error) {
	if routerID != nil {
		return *routerID, nil
	}
	router, err := s.repo.GetDefaultRouter(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return router.ID, nil
}

func (s *VoucherService) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	return s.repo.GetVoucherByCode(ctx, code)
}

func (s *VoucherService) List(ctx context.Context, limit, offset int) ([]model.Voucher, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListVouchers(ctx, limit, offset)
}

func newVoucherCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, codeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return codePrefix + string(code), nil
}
