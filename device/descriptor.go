package device

import (
	"encoding/xml"
)

type descriptorRoot struct {
	XMLName xml.Name         `xml:"root"`
	Device  descriptorDevice `xml:"device"`
}

type descriptorDevice struct {
	DeviceType      string `xml:"deviceType"`
	FriendlyName    string `xml:"friendlyName"`
	Manufacturer    string `xml:"manufacturer"`
	ManufacturerURL string `xml:"manufacturerURL"`
	ModelName       string `xml:"modelName"`
	SerialNumber    string `xml:"serialNumber"`
	UDN             string `xml:"UDN"`
}

// Descriptor renders the document the hub fetches from the SSDP Location
func (id Identity) Descriptor() ([]byte, error) {
	doc := descriptorRoot{
		Device: descriptorDevice{
			DeviceType:      "urn:roku-com:device:player:1-0",
			FriendlyName:    id.FriendlyName,
			Manufacturer:    Manufacturer,
			ManufacturerURL: ManufacturerURL,
			ModelName:       ModelName,
			SerialNumber:    id.Serial(),
			UDN:             id.UDN(),
		},
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

type apps struct {
	XMLName xml.Name `xml:"apps"`
	Apps    []app    `xml:"app"`
}

type app struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
	Name    string `xml:",chardata"`
}

// Apps renders the /query/apps answer; we have no channels to offer
func Apps() []byte {
	out, _ := xml.Marshal(apps{})
	return out
}
