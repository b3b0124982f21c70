package sefaz

import (
	"strings"

	"github.com/petshopone/fiscal-service/internal/types"
)

// The distribution service (NFeDistribuicaoDFe) is hosted by the
// national environment; state SEFAZ installations delegate to it.
// The table still models per-authorizer URLs so state overrides can be
// added without touching the resolution logic.
const (
	defaultProductionURL   = "https://www1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx"
	defaultHomologationURL = "https://hom1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx"
)

var endpointTable = map[types.Environment]map[string]string{
	types.EnvironmentProduction: {
		"AN": defaultProductionURL,
	},
	types.EnvironmentHomologation: {
		"AN": defaultHomologationURL,
	},
}

// UFs served by the Sefaz Virtual do Rio Grande do Sul
var svrsUFs = map[string]bool{
	"AC": true, "AL": true, "AP": true, "CE": true, "DF": true,
	"ES": true, "PB": true, "PI": true, "RJ": true, "RN": true,
	"RO": true, "RR": true, "RS": true, "SC": true, "SE": true,
	"TO": true,
}

// UFs served by the Sefaz Virtual do Ambiente Nacional
var svanUFs = map[string]bool{
	"MA": true,
}

// ufCodes maps UF initials to their numeric IBGE code, used for cUFAutor
var ufCodes = map[string]string{
	"AC": "12", "AL": "27", "AM": "13", "AP": "16", "BA": "29",
	"CE": "23", "DF": "53", "ES": "32", "GO": "52", "MA": "21",
	"MG": "31", "MS": "50", "MT": "51", "PA": "15", "PB": "25",
	"PE": "26", "PI": "22", "PR": "41", "RJ": "33", "RN": "24",
	"RO": "11", "RR": "14", "RS": "43", "SC": "42", "SE": "28",
	"SP": "35", "TO": "17",
}

// EndpointForUF resolves the distribution URL for a UF, following the
// SVRS/SVAN delegation chain and falling back to the national default.
func EndpointForUF(uf string, env types.Environment) string {
	uf = normalizeUF(uf)

	lookup := uf
	if svrsUFs[uf] {
		lookup = "SVRS"
	} else if svanUFs[uf] {
		lookup = "SVAN"
	}

	urls := endpointTable[env]
	if url, ok := urls[lookup]; ok {
		return url
	}
	if url, ok := urls["AN"]; ok {
		return url
	}
	if env == types.EnvironmentHomologation {
		return defaultHomologationURL
	}
	return defaultProductionURL
}

// UFCode returns the numeric IBGE code used as cUFAutor.
// Unknown UFs default to 35 (SP).
func UFCode(uf string) string {
	if code, ok := ufCodes[normalizeUF(uf)]; ok {
		return code
	}
	return "35"
}

func normalizeUF(uf string) string {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	if len(uf) > 2 {
		uf = uf[:2]
	}
	return uf
}
