package salesforce

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Contact is the Contact__c relation carrying the customer address.
type Contact struct {
	PostalCode string `json:"Code_Postal__c" salesforce:"Code_Postal__c"`
	City       string `json:"Ville__c" salesforce:"Ville__c"`
}

// ProjectRef is the Projet__r relation nested under a contract.
type ProjectRef struct {
	ID           string   `json:"Id" salesforce:"Id"`
	Salesperson  string   `json:"Commercial__c" salesforce:"Commercial__c"`
	Origin       string   `json:"Origine__c" salesforce:"Origine__c"`
	Status       string   `json:"Statut__c" salesforce:"Statut__c"`
	CreatedDate  string   `json:"Date_Creation__c" salesforce:"Date_Creation__c"`
	SubscribedAt string   `json:"Date_Souscription__c" salesforce:"Date_Souscription__c"`
	Contact      *Contact `json:"Contact__r" salesforce:"Contact__r"`
}

// Contract is a Contrat__c record.
type Contract struct {
	ID             string      `json:"Id" salesforce:"Id"`
	MonthlyPremium *float64    `json:"Prime_Brute_Mensuelle__c" salesforce:"Prime_Brute_Mensuelle__c"`
	RateYear1      *float64    `json:"Commissionnement_Annee1__c" salesforce:"Commissionnement_Annee1__c"`
	RateRecurring  *float64    `json:"Commissionnement_Autres_Annees__c" salesforce:"Commissionnement_Autres_Annees__c"`
	Status         string      `json:"Statut__c" salesforce:"Statut__c"`
	Carrier        string      `json:"Compagnie__c" salesforce:"Compagnie__c"`
	Project        *ProjectRef `json:"Projet__r" salesforce:"Projet__r"`
}

// Project is a Projet__c record.
type Project struct {
	ID          string   `json:"Id" salesforce:"Id"`
	Salesperson string   `json:"Commercial__c" salesforce:"Commercial__c"`
	Origin      string   `json:"Origine__c" salesforce:"Origine__c"`
	Status      string   `json:"Statut__c" salesforce:"Statut__c"`
	CreatedDate string   `json:"Date_Creation__c" salesforce:"Date_Creation__c"`
	Contact     *Contact `json:"Contact__r" salesforce:"Contact__r"`
}

var contractFields = []string{
	"Id", "Prime_Brute_Mensuelle__c", "Commissionnement_Annee1__c",
	"Commissionnement_Autres_Annees__c", "Statut__c", "Compagnie__c",
	"Projet__r.Id", "Projet__r.Commercial__c", "Projet__r.Origine__c",
	"Projet__r.Statut__c", "Projet__r.Date_Creation__c", "Projet__r.Date_Souscription__c",
	"Projet__r.Contact__r.Code_Postal__c", "Projet__r.Contact__r.Ville__c",
}

var projectFields = []string{
	"Id", "Commercial__c", "Origine__c", "Statut__c", "Date_Creation__c",
	"Contact__r.Code_Postal__c",
}

// ListContracts reads every Contrat__c record with its project and contact.
func ListContracts(ctx context.Context, c Client) ([]Contract, error) {
	soql := "SELECT " + strings.Join(contractFields, ", ") + " FROM Contrat__c"
	var out []Contract
	if err := c.Query(ctx, soql, &out); err != nil {
		return nil, eris.Wrap(err, "sf: list contracts")
	}
	return out, nil
}

// ListProjects reads every Projet__c record with its contact.
func ListProjects(ctx context.Context, c Client) ([]Project, error) {
	soql := "SELECT " + strings.Join(projectFields, ", ") + " FROM Projet__c"
	var out []Project
	if err := c.Query(ctx, soql, &out); err != nil {
		return nil, eris.Wrap(err, "sf: list projects")
	}
	return out, nil
}
