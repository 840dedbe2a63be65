package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
)

type PackageService struct {
	repo *repository.Repository
}

func NewPackageService(repo *repository.Repository) *PackageService {
	return &PackageService{repo: repo}
}

func (s *PackageService) GetActivePackages(ctx context.Context) ([]model.Package, error) {
	return s.repo.GetActivePackages(ctx)
}

func (s *PackageService) GetAllPackages(ctx context.Context) ([]model.Package, error) {
	return s.repo.GetAllPackages(ctx)
}

func (s *PackageService) GetPackage(ctx context.Context, id uuid.UUID) (*model.Package, error) {
	return s.repo.GetPackage(ctx, id)
}

func (s *PackageService) CreatePackage(ctx context.Context, pkg *model.Package) error {
	return s.repo.CreatePackage(ctx, pkg)
}

// UpdatePackage edits the catalog entry only. Grants already issued from
// this package keep their original duration and price.
func (s *PackageService) UpdatePackage(ctx context.Context, pkg *model.Package) error {
	return s.repo.UpdatePackage(ctx, pkg)
}

func (s *PackageService) DeletePackage(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeletePackage(ctx, id)
}
