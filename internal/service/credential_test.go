package service

import (
	"testing"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type CredentialServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CredentialService
}

func TestCredentialService(t *testing.T) {
	suite.Run(t, new(CredentialServiceSuite))
}

func (s *CredentialServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCredentialService(ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		Vault:          s.GetVault(),
		CredentialRepo: s.GetStores().CredentialRepo,
		NFeImportRepo:  s.GetStores().NFeImportRepo,
	})
}

func (s *CredentialServiceSuite) validRequest() *ConfigureCredentialRequest {
	return &ConfigureCredentialRequest{
		CNPJ:     "12.345.678/0001-95",
		UF:       "sp",
		PFXData:  testutil.TestPFX(),
		Password: testutil.TestPFXPassword,
	}
}

func (s *CredentialServiceSuite) TestConfigure() {
	cred, err := s.service.Configure(s.GetContext(), s.validRequest())
	s.NoError(err)
	s.NotNil(cred)

	s.Equal("12345678000195", cred.CNPJ)
	s.Equal("SP", cred.UF)
	s.Equal("0", cred.LastNSU)
	s.True(cred.Active)
	s.NotEmpty(cred.CertificateSubject)
	s.NotNil(cred.CertificateNotAfter)

	// Stored material must be vault tokens, not the raw inputs
	s.NotEqual(string(testutil.TestPFX()), cred.CertificateEncrypted)
	s.NotEqual(testutil.TestPFXPassword, cred.PasswordEncrypted)

	password, err := s.GetVault().Decrypt(cred.PasswordEncrypted)
	s.NoError(err)
	s.Equal(testutil.TestPFXPassword, password)
}

func (s *CredentialServiceSuite) TestConfigureWrongPassword() {
	req := s.validRequest()
	req.Password = "not-the-password"

	_, err := s.service.Configure(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsInvalidCertificate(err))

	// Nothing is persisted when the bundle does not open
	_, err = s.service.Get(s.GetContext())
	s.True(ierr.IsNotFound(err))
}

func (s *CredentialServiceSuite) TestConfigureValidation() {
	testCases := []struct {
		name   string
		mutate func(*ConfigureCredentialRequest)
	}{
		{"short CNPJ", func(r *ConfigureCredentialRequest) { r.CNPJ = "12345" }},
		{"bad UF", func(r *ConfigureCredentialRequest) { r.UF = "X" }},
		{"missing file", func(r *ConfigureCredentialRequest) { r.PFXData = nil }},
		{"missing password", func(r *ConfigureCredentialRequest) { r.Password = "" }},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			req := s.validRequest()
			tc.mutate(req)
			_, err := s.service.Configure(s.GetContext(), req)
			s.Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *CredentialServiceSuite) TestConfigureReplacesExisting() {
	first, err := s.service.Configure(s.GetContext(), s.validRequest())
	s.NoError(err)

	req := s.validRequest()
	req.UF = "MG"
	second, err := s.service.Configure(s.GetContext(), req)
	s.NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal("MG", second.UF)
}

func (s *CredentialServiceSuite) TestSetActive() {
	_, err := s.service.Configure(s.GetContext(), s.validRequest())
	s.NoError(err)

	cred, err := s.service.SetActive(s.GetContext(), false)
	s.NoError(err)
	s.False(cred.Active)

	active, err := s.GetStores().CredentialRepo.ListActive(s.GetContext())
	s.NoError(err)
	s.Empty(active)
}

func (s *CredentialServiceSuite) TestDelete() {
	_, err := s.service.Configure(s.GetContext(), s.validRequest())
	s.NoError(err)

	s.NoError(s.service.Delete(s.GetContext()))

	_, err = s.service.Get(s.GetContext())
	s.True(ierr.IsNotFound(err))
}

func (s *CredentialServiceSuite) TestDeleteWithoutCredential() {
	err := s.service.Delete(s.GetContext())
	s.True(ierr.IsNotFound(err))
}
