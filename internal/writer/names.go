package writer

import "fmt"

// AllMissingClients is the base name of the combined missing-clients file.
const AllMissingClients = "All Missing Clients"

// PrecleanedName is "{date} {publisher} Precleaned{ext}".
func (w *Writer) PrecleanedName(date, publisher string) string {
	return fmt.Sprintf("%s %s Precleaned%s", date, publisher, w.Ext())
}

// CleanDataName is "{customer} {publisher} Clean Data{ext}".
func (w *Writer) CleanDataName(customer, publisher string) string {
	return fmt.Sprintf("%s %s Clean Data%s", customer, publisher, w.Ext())
}

// ReadershipName is "{customer} Readership File{ext}".
func (w *Writer) ReadershipName(customer string) string {
	return fmt.Sprintf("%s Readership File%s", customer, w.Ext())
}

// MissingClientsName is "{customer} Missing Clients{ext}".
func (w *Writer) MissingClientsName(customer string) string {
	return fmt.Sprintf("%s Missing Clients%s", customer, w.Ext())
}

// AllMissingClientsName is the combined missing-clients file name.
func (w *Writer) AllMissingClientsName() string {
	return AllMissingClients + w.Ext()
}
