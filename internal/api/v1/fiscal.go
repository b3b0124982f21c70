package v1

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petshopone/fiscal-service/internal/api/dto"
	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/service"
	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/samber/lo"
)

// maxCertificateSize caps the uploaded PKCS#12 bundle. A1 files are a
// few kilobytes; anything larger is not a certificate.
const maxCertificateSize = 1 << 20

type FiscalHandler struct {
	credentialService service.CredentialService
	importService     service.ImportService
	syncService       service.SyncService
	log               *logger.Logger
}

func NewFiscalHandler(
	credentialService service.CredentialService,
	importService service.ImportService,
	syncService service.SyncService,
	log *logger.Logger,
) *FiscalHandler {
	return &FiscalHandler{
		credentialService: credentialService,
		importService:     importService,
		syncService:       syncService,
		log:               log,
	}
}

// @Summary Configure fiscal credential
// @Description Uploads the tenant's A1 certificate and fiscal settings
// @Tags Fiscal
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.CredentialResponse
func (h *FiscalHandler) ConfigureCredential(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ConfigureCredentialRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Error("Failed to bind form", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("cnpj, uf and password form fields are required").
			Mark(ierr.ErrValidation))
		return
	}

	fileHeader, err := c.FormFile("certificate")
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("certificate file is required").
			Mark(ierr.ErrValidation))
		return
	}
	if fileHeader.Size > maxCertificateSize {
		c.Error(ierr.NewError("certificate file too large").
			WithHint("Certificate file must be smaller than 1MB").
			Mark(ierr.ErrValidation))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read the certificate file").
			Mark(ierr.ErrValidation))
		return
	}
	defer file.Close()

	pfxData, err := io.ReadAll(io.LimitReader(file, maxCertificateSize+1))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read the certificate file").
			Mark(ierr.ErrValidation))
		return
	}

	cred, err := h.credentialService.Configure(ctx, &service.ConfigureCredentialRequest{
		CNPJ:     req.CNPJ,
		UF:       req.UF,
		PFXData:  pfxData,
		Password: req.Password,
	})
	if err != nil {
		h.log.Error("Failed to configure credential", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCredentialResponse(cred))
}

// @Summary Get fiscal credential
// @Tags Fiscal
// @Produce json
// @Success 200 {object} dto.CredentialResponse
func (h *FiscalHandler) GetCredential(c *gin.Context) {
	ctx := c.Request.Context()
	cred, err := h.credentialService.Get(ctx)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCredentialResponse(cred))
}

// @Summary Enable or disable the fiscal credential
// @Tags Fiscal
// @Accept json
// @Produce json
// @Success 200 {object} dto.CredentialResponse
func (h *FiscalHandler) SetCredentialActive(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SetCredentialActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("active field is required").
			Mark(ierr.ErrValidation))
		return
	}

	cred, err := h.credentialService.SetActive(ctx, lo.FromPtr(req.Active))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCredentialResponse(cred))
}

// @Summary Delete fiscal credential
// @Tags Fiscal
// @Produce json
// @Success 200 {object} map[string]string
func (h *FiscalHandler) DeleteCredential(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.credentialService.Delete(ctx); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Credential deleted successfully"})
}

// @Summary Import an NF-e by access key
// @Tags Imports
// @Accept json
// @Produce json
// @Success 200 {object} dto.ImportResponse
func (h *FiscalHandler) ImportByKey(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ImportByKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("access_key is required").
			Mark(ierr.ErrValidation))
		return
	}

	imp, err := h.importService.ImportByKey(ctx, req.AccessKey)
	if err != nil {
		h.log.Error("Failed to import access key", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToImportResponse(imp))
}

// @Summary List NF-e imports
// @Tags Imports
// @Produce json
// @Success 200 {object} dto.ListImportsResponse
func (h *FiscalHandler) ListImports(c *gin.Context) {
	ctx := c.Request.Context()

	filter := types.NewImportFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	imports, err := h.importService.List(ctx, filter)
	if err != nil {
		c.Error(err)
		return
	}
	total, err := h.importService.Count(ctx, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ListImportsResponse{
		Items: lo.Map(imports, func(imp *nfeimport.Import, _ int) *dto.ImportResponse {
			return dto.ToImportResponse(imp)
		}),
		Pagination: types.NewPaginationResponse(total, filter.GetLimit(), filter.GetOffset()),
	})
}

// @Summary Get one NF-e import
// @Tags Imports
// @Produce json
// @Success 200 {object} dto.ImportResponse
func (h *FiscalHandler) GetImport(c *gin.Context) {
	ctx := c.Request.Context()
	imp, err := h.importService.Get(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToImportResponse(imp))
}

// @Summary Get the product lines of an import
// @Tags Imports
// @Produce json
// @Success 200 {object} dto.ImportItemsResponse
func (h *FiscalHandler) GetImportItems(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := h.importService.GetItems(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ImportItemsResponse{Items: items})
}

// @Summary Download the stored NF-e XML
// @Tags Imports
// @Produce application/xml
// @Success 200 {string} string
func (h *FiscalHandler) DownloadXML(c *gin.Context) {
	ctx := c.Request.Context()

	if !types.IsAdmin(ctx) {
		c.Error(ierr.NewError("admin access required").
			WithHint("Only administrators can download fiscal XML").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	imp, err := h.importService.Get(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	xmlBytes, err := h.importService.DownloadXML(ctx, imp.ID)
	if err != nil {
		c.Error(err)
		return
	}

	filename := fmt.Sprintf("nfe_%s.xml", imp.AccessKey)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/xml", xmlBytes)
}

// @Summary Run the NSU sync for the tenant in context
// @Tags Sync
// @Produce json
// @Success 200 {object} service.SyncResult
func (h *FiscalHandler) TriggerSync(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.syncService.SyncByNSU(ctx, 0)
	if err != nil {
		h.log.Error("Sync run failed", "error", err)
		c.Error(err)
		return
	}
	if result == nil {
		c.Error(ierr.NewError("fiscal credential not configured").
			WithHint("Configure the fiscal certificate before syncing").
			Mark(ierr.ErrInvalidOperation))
		return
	}
	c.JSON(http.StatusOK, result)
}
