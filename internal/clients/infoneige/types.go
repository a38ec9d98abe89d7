package infoneige

import (
	"encoding/xml"
	"time"
)

// Planification is one street segment's snow-removal plan for a date.
type Planification struct {
	SegmentID int
	State     string
	Start     *time.Time
	End       *time.Time
}

// requestEnvelope is the SOAP request for GetPlanificationsForDate.
type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	NS      string      `xml:"xmlns:soapenv,attr"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	Request planificationsRequest `xml:"GetPlanificationsForDate"`
}

type planificationsRequest struct {
	Date string `xml:"date"`
}

// responseEnvelope parses the SOAP response. Tags match local element names
// only; the upstream namespace prefixes vary between deployments and
// encoding/xml tolerates that when the namespace is left unqualified.
type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Response planificationsResponse `xml:"GetPlanificationsForDateResponse"`
	Fault    *soapFault             `xml:"Fault"`
}

type planificationsResponse struct {
	Planifications []planificationXML `xml:"planifications>planification"`
}

type planificationXML struct {
	SegmentID int    `xml:"coteRueId"`
	State     string `xml:"etatDeneig"`
	DateStart string `xml:"dateDebutPlanif"`
	DateEnd   string `xml:"dateFinPlanif"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}
