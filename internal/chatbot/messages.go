package chatbot

import "fmt"

// Reply texts sent to clients. All client-facing copy is French; keep the
// wording stable, the back office greps the notification log for these.

const msgWelcomeMenu = "Bonjour 👋 et bienvenue chez Pressing Yamba 🧺\n" +
	"Je suis votre assistant virtuel. Voici nos services :\n\n" +
	"1️⃣ Lavage à sec\n" +
	"2️⃣ Lavage à eau\n" +
	"3️⃣ Repassage\n" +
	"4️⃣ Autres services (amidonnage, enlèvement, livraison)\n" +
	"5️⃣ Parler à un agent humain 👩🏽‍💼\n\n" +
	"➡ Répondez par le chiffre (1 à 5). Tapez 0 pour revenir au menu à tout moment."

const msgLocationReceived = "Localisation reçue ✅. Nous organiserons l'enlèvement."

const msgEscalation = "Un agent humain va prendre en charge votre demande. ⏳"

const msgAdminEscalationFmt = "Nouvelle demande d'assistance de %s"

const msgOrderConfirmed = "Merci ✅. Votre commande est enregistrée. " +
	"Nous vous contacterons pour l'enlèvement/livraison."

const msgOrderCancelled = "Commande annulée. Tapez 0 pour revenir au menu."

const msgConfirmPrompt = "Répondez 'oui' pour confirmer la commande ou 'non' pour annuler."

const msgNoPendingOrder = "Aucune commande en attente. Tapez 0 pour revenir au menu."

const msgOrderError = "Erreur: article ou type de tarif introuvable. " +
	"Vérifiez le numéro et le type (NE/NS/REP)."

const msgHelp = "Bienvenue! Tapez 'catalogue' pour voir la liste, " +
	"envoyez 'N, NE/NS/REP, qty' pour commander, " +
	"'humain' pour parler à un agent, ou 0 pour le menu."

const msgUnhandledType = "Type de message non géré. " +
	"Souhaitez-vous parler à un agent ? Tapez \"humain\"."

const msgInternalError = "Désolé, une erreur est survenue. " +
	"Tapez 0 pour revenir au menu ou 'humain' pour parler à un agent."

func orderRecap(breakdown string, total int) string {
	return fmt.Sprintf("Récapitulatif: %s\nTotal: %d FCFA\nRépondez 'oui' pour confirmer.", breakdown, total)
}

// serviceDetail returns the detail text for a menu selection 1..5, or "" for
// anything else. Prices shown here are indicative; real pricing always goes
// through the catalogue.
func serviceDetail(n int) string {
	switch n {
	case 1:
		return "Voici les prix pour le lavage à sec 👇\n" +
			"🧺 Serviette : 900 F (NE) | Repassage : 300 F\n" +
			"👔 Chemise : 1000 F | Costume : 3000 F\n\n" +
			"Souhaitez-vous :\n" +
			"1️⃣ Dépôt au pressing\n" +
			"2️⃣ Enlèvement à domicile 🚚\n\n" +
			"Tapez 1 ou 2. Tapez 0 pour revenir au menu."
	case 2:
		return "Lavage à eau 💧\n" +
			"🧺 Serviette : 700 F\n" +
			"👕 T-shirt : 500 F\n" +
			"Drap : 1000 F\n\n" +
			"Souhaitez-vous un amidonnage ?\n" +
			"1️⃣ Oui\n" +
			"2️⃣ Non\n\n" +
			"Tapez 0 pour revenir au menu."
	case 3:
		return "Voici nos tarifs pour le repassage 👕\n\n" +
			"Chemise : 300 F\n" +
			"Pantalon : 400 F\n" +
			"Costume : 800 F\n\n" +
			"Tapez 0 pour revenir au menu."
	case 4:
		return "Services supplémentaires 🌟\n\n" +
			"Amidonnage : 200 F par vêtement\n" +
			"Enlèvement à domicile 🚚\n" +
			"Livraison après nettoyage 📦\n\n" +
			"Tapez 0 pour revenir au menu."
	case 5:
		return "Merci ! 😊\nUn membre de notre équipe va vous répondre dans quelques instants."
	}
	return ""
}
