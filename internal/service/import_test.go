package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/petshopone/fiscal-service/internal/certificate"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/sefaz"
	"github.com/petshopone/fiscal-service/internal/testutil"
	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/stretchr/testify/suite"
)

var (
	accessKeyA = strings.Repeat("35", 22)
	accessKeyB = strings.Repeat("42", 22)
)

func fullXML(accessKey string) string {
	return fmt.Sprintf(`<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
		<NFe><infNFe Id="NFe%s" versao="4.00">
			<ide><nNF>1234</nNF><dhEmi>2026-01-15T10:30:00-03:00</dhEmi></ide>
			<emit><CNPJ>11222333000181</CNPJ><xNome>Distribuidora Pet Ltda</xNome></emit>
			<dest><CNPJ>12345678000195</CNPJ><xNome>Petshop One</xNome></dest>
			<det nItem="1"><prod>
				<cProd>1</cProd><cEAN>7891234567895</cEAN><xProd>Racao Premium 15kg</xProd>
				<NCM>23091000</NCM><CFOP>5102</CFOP>
				<uCom>UN</uCom><qCom>2.0000</qCom><vUnCom>120.50</vUnCom><vProd>241.00</vProd>
			</prod></det>
			<total><ICMSTot><vNF>241.00</vNF></ICMSTot></total>
		</infNFe></NFe>
	</nfeProc>`, accessKey)
}

func summaryXML(accessKey string) string {
	return fmt.Sprintf(`<resNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">
		<chNFe>%s</chNFe>
		<CNPJ>11222333000181</CNPJ>
		<xNome>Distribuidora Pet Ltda</xNome>
		<dhEmi>2026-01-15T10:30:00-03:00</dhEmi>
		<vNF>241.00</vNF>
		<cSitNFe>1</cSitNFe>
	</resNFe>`, accessKey)
}

func fullDocZip(nsu, accessKey string) sefaz.DocZip {
	return sefaz.DocZip{NSU: nsu, Schema: "procNFe_v4.00.xsd", Payload: testutil.GzipBase64(fullXML(accessKey))}
}

func summaryDocZip(nsu, accessKey string) sefaz.DocZip {
	return sefaz.DocZip{NSU: nsu, Schema: "resNFe_v1.01.xsd", Payload: testutil.GzipBase64(summaryXML(accessKey))}
}

func foundResult(ultNSU string, docs ...sefaz.DocZip) *sefaz.QueryResult {
	return &sefaz.QueryResult{
		CStat:      sefaz.CStatDocumentsFound,
		XMotivo:    "Documento(s) localizado(s)",
		UltNSU:     ultNSU,
		ConsMaxNSU: ultNSU,
		Docs:       docs,
	}
}

type ImportServiceSuite struct {
	testutil.BaseServiceTestSuite
	service     ImportService
	credService CredentialService
	fake        *testutil.FakeDistribuicao
}

func TestImportService(t *testing.T) {
	suite.Run(t, new(ImportServiceSuite))
}

func (s *ImportServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.fake = testutil.NewFakeDistribuicao()

	params := ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		Vault:          s.GetVault(),
		CredentialRepo: s.GetStores().CredentialRepo,
		NFeImportRepo:  s.GetStores().NFeImportRepo,
		QuerierFactory: func(cred *certificate.Credential, cnpj, uf string) (sefaz.Querier, error) {
			return s.fake, nil
		},
	}
	s.service = NewImportService(params)
	s.credService = NewCredentialService(params)
}

func (s *ImportServiceSuite) configureCredential() {
	_, err := s.credService.Configure(s.GetContext(), &ConfigureCredentialRequest{
		CNPJ:     "12345678000195",
		UF:       "SP",
		PFXData:  testutil.TestPFX(),
		Password: testutil.TestPFXPassword,
	})
	s.Require().NoError(err)
}

func (s *ImportServiceSuite) TestImportWithoutCredential() {
	_, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ImportServiceSuite) TestImportInvalidKey() {
	s.configureCredential()

	_, err := s.service.ImportByKey(s.GetContext(), "123")
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Empty(s.fake.KeyCalls)
}

func (s *ImportServiceSuite) TestImportFullDocument() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{
		foundResult("000000000000123", fullDocZip("123", accessKeyA)),
	}

	imp, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)
	s.Require().NotNil(imp)

	s.Equal(types.ImportStatusImported, imp.ImportStatus)
	s.Equal(accessKeyA, imp.AccessKey)
	s.Equal("138", imp.SefazCStat)
	s.Equal("Distribuidora Pet Ltda", imp.IssuerName)
	s.Equal("11222333000181", imp.IssuerCNPJ)
	s.Equal("Petshop One", imp.RecipientName)
	s.Equal("1234", imp.Number)
	s.Equal("241", imp.TotalAmount.String())
	s.True(imp.HasXML())
	s.NotEmpty(imp.XMLHash)
	s.NotNil(imp.ImportedAt)

	items, err := s.service.GetItems(s.GetContext(), imp.ID)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal("Racao Premium 15kg", items[0].Description)
	s.Equal("7891234567895", items[0].GTIN)
	s.Equal("2", items[0].Quantity.String())
	s.Equal("241", items[0].Total.String())
}

func (s *ImportServiceSuite) TestImportNormalizesKey() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{
		foundResult("000000000000123", fullDocZip("123", accessKeyA)),
	}

	// Punctuation and whitespace in pasted keys are stripped
	messy := accessKeyA[:4] + " " + accessKeyA[4:8] + "." + accessKeyA[8:]
	imp, err := s.service.ImportByKey(s.GetContext(), messy)
	s.NoError(err)
	s.Equal(accessKeyA, imp.AccessKey)
	s.Equal([]string{accessKeyA}, s.fake.KeyCalls)
}

func (s *ImportServiceSuite) TestImportIsIdempotent() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{
		foundResult("000000000000123", fullDocZip("123", accessKeyA)),
	}

	first, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)

	second, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	// The second call never reaches the distribution service
	s.Len(s.fake.KeyCalls, 1)
}

func (s *ImportServiceSuite) TestImportNoDocuments() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{{
		CStat:   sefaz.CStatNoDocuments,
		XMotivo: "Nenhum documento localizado",
	}}

	imp, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)
	s.Equal(types.ImportStatusImported, imp.ImportStatus)
	s.Equal("137", imp.SefazCStat)
	s.False(imp.HasXML())
}

func (s *ImportServiceSuite) TestImportRejected() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{{
		CStat:   "217",
		XMotivo: "Rejeicao: NF-e nao consta na base de dados da SEFAZ",
	}}

	_, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.Error(err)
	s.True(ierr.IsUpstream(err))

	imp, getErr := s.service.GetByAccessKey(s.GetContext(), accessKeyA)
	s.NoError(getErr)
	s.Equal(types.ImportStatusError, imp.ImportStatus)
	s.Equal("217", imp.SefazCStat)
	s.Contains(imp.SefazXMotivo, "Rejeicao")
}

func (s *ImportServiceSuite) TestImportRetriesAfterError() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{
		{
			CStat:   "217",
			XMotivo: "Rejeicao: NF-e nao consta na base de dados da SEFAZ",
		},
		foundResult("000000000000123", fullDocZip("123", accessKeyA)),
	}

	_, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.Require().Error(err)

	// The errored row re-enters the queue and imports on the next call
	imp, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)
	s.Equal(types.ImportStatusImported, imp.ImportStatus)
	s.Len(s.fake.KeyCalls, 2)
}

func (s *ImportServiceSuite) TestImportQuerierFailure() {
	s.configureCredential()
	s.fake.KeyErrors = []error{
		ierr.NewError("connection reset by peer").Mark(ierr.ErrUpstream),
	}

	_, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.Error(err)

	imp, getErr := s.service.GetByAccessKey(s.GetContext(), accessKeyA)
	s.NoError(getErr)
	s.Equal(types.ImportStatusError, imp.ImportStatus)
	s.Contains(imp.SefazXMotivo, "connection reset")
}

func (s *ImportServiceSuite) TestImportSurvivesBadPayload() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{
		foundResult("000000000000123",
			sefaz.DocZip{NSU: "122", Schema: "procNFe_v4.00.xsd", Payload: "not-base64!"},
			fullDocZip("123", accessKeyA),
		),
	}

	imp, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)
	s.Equal(types.ImportStatusImported, imp.ImportStatus)
	s.True(imp.HasXML())
}

func (s *ImportServiceSuite) TestDownloadXML() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{
		foundResult("000000000000123", fullDocZip("123", accessKeyA)),
	}

	imp, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)

	xmlBytes, err := s.service.DownloadXML(s.GetContext(), imp.ID)
	s.NoError(err)
	s.Equal(fullXML(accessKeyA), string(xmlBytes))
	s.Equal(s.GetVault().Hash(string(xmlBytes)), imp.XMLHash)
}

func (s *ImportServiceSuite) TestDownloadXMLNotStored() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{{
		CStat:   sefaz.CStatNoDocuments,
		XMotivo: "Nenhum documento localizado",
	}}

	imp, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)

	_, err = s.service.DownloadXML(s.GetContext(), imp.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *ImportServiceSuite) TestListAndCount() {
	s.configureCredential()
	s.fake.KeyResponses = []*sefaz.QueryResult{
		foundResult("000000000000123", fullDocZip("123", accessKeyA)),
	}

	_, err := s.service.ImportByKey(s.GetContext(), accessKeyA)
	s.NoError(err)

	list, err := s.service.List(s.GetContext(), nil)
	s.NoError(err)
	s.Len(list, 1)

	filter := types.NewImportFilter()
	status := types.ImportStatusImported
	filter.ImportStatus = &status
	count, err := s.service.Count(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, count)
}
