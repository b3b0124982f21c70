package testutil

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
)

// TestPFXPassword opens the bundle returned by TestPFX
const TestPFXPassword = "changeit"

// testPFXBase64 is a self-signed RSA certificate packed with the
// legacy SHA1/3DES algorithms the PKCS#12 decoder understands. Subject
// CN follows the ICP-Brasil e-CNPJ convention of appending the CNPJ.
const testPFXBase64 = `
MIIJyQIBAzCCCY8GCSqGSIb3DQEHAaCCCYAEggl8MIIJeDCCBC8GCSqGSIb3DQEHBqCCBCAwggQc
AgEAMIIEFQYJKoZIhvcNAQcBMBwGCiqGSIb3DQEMAQMwDgQIdaAvxTjV224CAggAgIID6EHFHUoI
rmjVb0CqLlhRfZcQYXD92D5DrklR5kAwsfFzf9xMClkBe3ogimEhNz7BmKxapugmeIb6Fbx/W6QG
WiqdzyYN9J6fICy9azYwkNfnFeEUyeIhC/kOs2Xwca3l5Ux29O1eaTMmkEQPFEAYvJq76wZyOzHd
6zqE1heJbtUgSAgSxkZf53Hky9LjHrZzVd8IWl6JXkvGyBRMTH6KJQ5c6xmILj3sPZcnvXvsMNhP
rp2gb3cxN2tqw65w9pYnrGkXIMl+jSnmsoGnarzjlVw85+19nSrqUup0rLAoPgPz9/I9JsMUJgQv
PLsvxPTP0GvBz5GqkkkSK/5sWAgqmFQ4PUr/sNp0CdE3GQvj/vwngqH1js1sgb1OJB7+Yct2lYAA
l7+sUE/ze00tZw/OUB7GVDl9IzFy1iNIpWoX4BsotgMNm+AZTUaqP8whuKyekwkuVFe80M4esli1
JYGp4w8rGe+NVcBscBAGKwaBTx0LMqVnBcJ4jj2zmsKKqQ4Bm9FNMwo7U9CyLoXx3M2tWVl172zJ
u+y2tbZ689v/MOYdt3UNp4cYwgkxi1UUbJQoLEvueqGR70QVJTa8530wzoQVNQtRIcd/jrHe4Vpf
ZdaXYHljIw+O6E7n5Ovm5thWiI9AvYphRBGdzY780lpAXmrDIAsOf53T+3eBUZ3TguxyuqjKdTMk
wPWjYHhzI07gq+SnTZ8lysFuZ+eh8e20IDTapwkHtpNkQ0R4tXKpiE+TZB5y1hTanaDa9xBxsqw9
B2TnVW9U0BhQQf/gnGOqPql92zLzEEjy9fSxAw1+/1VhBEzsgKl6ZeIFikefzm//1imBewmEinjI
E5cxDX3kcc158W+E4mkARJbZbGBEYMBvNtr/cd3l6ujqrNUpGDWP/bSOoBA+jwV/+91xDqM4DnVA
RHY6YS64C5JN9Uh9od42ypCWf3QFqbJyRktF3XLfh7ckwCrJ4PdYcf+1i6omFaVHFIRR67XMl149
VxXMvYux4XUV087M29NWetcOPgVmPQcfOVUM8Ovbw+n6zzneJRiE/ixOa2QMi8+f6AvzLQYpPcED
ukpCtWbJj0xLt1Z+M3cCaH5b+un1/Q74cf+8HjG1n3ce677aZI/tdToC2jjCxMzNYsx1mvc3ehby
98LEN8DtCtS1Mexbh4QzfU1/PyfZuEL7NPXymDpsfwWqq1lTu+cTM9LDP9lK8FZhFiORbDv7UvYL
fdEpjB0mZtnvyLb5Ck7+18gt78X/oPSLOE6plmGjqBeVvF7D6GO1BzGPZKzFXvNqUkksUFm8EkEu
V/7w/jeODFX3dL68HRWnA54QUbrMPjnUFk4wggVBBgkqhkiG9w0BBwGgggUyBIIFLjCCBSowggUm
BgsqhkiG9w0BDAoBAqCCBO4wggTqMBwGCiqGSIb3DQEMAQMwDgQISVe1As2qmo4CAggABIIEyKcP
zbTMN0sGSaOqOs1pjXzNN4BlnSnPtwTOxWtYQhM6mmZQvCkOr96JrHb0fvf36/ELre3mFsB1tpcT
jV/B1ICteOF12OaQh8eF87PU6be4yxf1sZBp1nf0jX7/nhf+/cTHqbyVpJ1Itvuwg8KW1OJ7eT3T
LOgeU0Al5Mk/eN3jUAVseBMEodVcIa4GWK4EaHHVgokWZYfBSGpvB4M9ZokzUHmd2L7vk9dTuM9s
M0bJYMq9jqVxV0g1FgILbKRfnDcIjn4xww3VF0SGXCMqNtZn9yllOM28HM28HpdPfu0tJvu1o016
nMdSIX+yZVBYCimhDZtmI+oXJfmLkyYl2Bxu/QeZpv4XdzPzVxwsWilvZhaVKhtu+SmZS7uPAYmp
NoQdxfTk7ms5i7UAmKPa1e7hVsnQUqYqgcH8Xnb3deA+N5VH9BMoXBFh0EPh4wd++mavt25frGjW
y7d235REQbI33UjJVYz+am6IrMjWkkPKnC2MpRKdtiL1+riJNmGGLFMygvUHaW7S+lDbnK95JdUc
l3QkPmO7YILEZfLPEhmSuYBLCq+jWsrlojpe/MgtiSpEjHO055jxronsps/N08yxAGjOwhIqd6cu
8UyuvoXblmL1GsdItnBgeTWV4q1lMzG/ZPJeM2t1WORhyEq2E070zXZlJ7nf/EnPes/hSvl+WnGj
4fN2AZLITcfcF6dMJUUgE1eQRIpQ0zk1j2DPKxl9CbvkdkQFYyQQv8Od7Yl1tv14G3DR3XAd323T
AwWnWnTtL94dpa3Qrz94IxaBRmCFcPMPh+g3WL1HdZ/m3rxPVW8VCt9UB2T5mV3NtImxv7a23UsJ
mZy1RfB4v0mglHlIs67W89t5whtj9AlmTs2JtR3GVfFxOHTVjGLFDXiV1zi0vKUjWqdcuJSCJn4l
JpSg6S9PyCf6NC0xgH9t1YJO2T7+dNX6PM7ZEw9VmUB6tgHW2kS5ZdJF8TdkbuQHDKmgZS5tIS7j
StPadmJGGkco+lB5wgxb/IEJOXerMjqBKad+89mbM6enTDIBiBGUIv3TKaqll2kTNzfxD5TVGSzN
26xck6OS44V1H+WFa3KRByzhbUXf9nzY55CUG6TnI3vQBu3NuLUAnqNadYiXa3/H4ME28MrMw5Ga
z1VrXSZxiNuHIhFR2y8m/ULRgnV8qyNJ8GW/WtfMq2rhVtn83Wo+SkMcqOPLKSf5ckp86R+HPQM/
5laExj+NEenWGrpXfQEGRnq7itUiu6akuOjVbiyma90RpKW3sI+W3Gl3rkl+u47JQ2qZ66v6K9c8
CRHE68Vu0ULsBx7S16o/ptsrgQ/CoAqSw3WV0KuRNqnxOmARVNFaXPWnrJMIRI/pI8Kq8joMd0kw
J5TnS7aBXcRvJOagoyB7ZrwPnxo+ABIL/E+S5UZq2XlmMy+0qZccVmyrXv0p5wQLak9FMSwOGLCY
E+T+gsGEM28qrFdTtLvAuM/I0oa6sFFUKv4BNMGbcxYLi8MfZiWRYL4LhSyc8zOH8sAysNp2YPMl
ZItrOlBVn3djHuB8irNTIJjUi1O4QafYcuFBXoznQFhduqsht0PDAchEDsLHeLKqgbSDK8tmVacI
tqh1wVHLTrzzXj3Cx4T5D1P/b0hJo6FwVDElMCMGCSqGSIb3DQEJFTEWBBSnpk1KAoQy4qh3pydw
IlqzNN8HijAxMCEwCQYFKw4DAhoFAAQUJlaHaenvF59OJNExpRDnGE7DqAQECIqFaMQCnsDGAgII
AA==`

// TestPFX returns the raw PKCS#12 bundle for service tests
func TestPFX() []byte {
	clean := ""
	for _, line := range bytes.Split([]byte(testPFXBase64), []byte("\n")) {
		clean += string(bytes.TrimSpace(line))
	}
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		panic("corrupt embedded test certificate: " + err.Error())
	}
	return data
}

// GzipBase64 packs an XML document the way distribution docZip
// payloads arrive on the wire
func GzipBase64(xml string) string {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(xml)); err != nil {
		panic(err)
	}
	if err := gz.Close(); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
