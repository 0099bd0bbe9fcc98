// Package jakarta holds the quick fixes of the Jakarta EE rule families and
// the table binding diagnostic codes to them.
package jakarta

import (
	"github.com/liberty-tools/liberty-lsp/internal/catalog"
	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
)

// Annotations the fixes look for or insert
const (
	Inject         = "jakarta.inject.Inject"
	Produces       = "jakarta.enterprise.inject.Produces"
	Disposes       = "jakarta.enterprise.inject.Disposes"
	Observes       = "jakarta.enterprise.event.Observes"
	ObservesAsync  = "jakarta.enterprise.event.ObservesAsync"
	Dependent      = "jakarta.enterprise.context.Dependent"
	PostConstruct  = "jakarta.annotation.PostConstruct"
	PreDestroy     = "jakarta.annotation.PreDestroy"
	Resource       = "jakarta.annotation.Resource"
	PathParam      = "jakarta.websocket.server.PathParam"
	JsonbTransient = "jakarta.json.bind.annotation.JsonbTransient"
	JsonbCreator   = "jakarta.json.bind.annotation.JsonbCreator"
	MapKey         = "jakarta.persistence.MapKey"
	MapKeyClass    = "jakarta.persistence.MapKeyClass"
)

var normalScopes = []string{
	"jakarta.enterprise.context.RequestScoped",
	"jakarta.enterprise.context.SessionScoped",
	"jakarta.enterprise.context.ApplicationScoped",
	"jakarta.enterprise.context.ConversationScoped",
}

var invalidParamAnnotations = []string{Disposes, Observes, ObservesAsync}

// Diagnostic codes reported by the Jakarta analysis server
const (
	CodeInjectFinal       diagnostic.Code = "inject-final"
	CodeInjectConstructor diagnostic.Code = "inject-constructor"
	CodeInjectGeneric     diagnostic.Code = "inject-generic"
	CodeInjectAbstract    diagnostic.Code = "inject-abstract"
	CodeInjectStatic      diagnostic.Code = "inject-static"

	CodePostConstructParams     diagnostic.Code = "postconstruct-params"
	CodePostConstructReturnType diagnostic.Code = "postconstruct-return-type"
	CodePreDestroyStatic        diagnostic.Code = "predestroy-static"
	CodePreDestroyParams        diagnostic.Code = "predestroy-params"
	CodeResourceMissingName     diagnostic.Code = "resource-missing-name"
	CodeResourceMissingType     diagnostic.Code = "resource-missing-type"

	CodeResourceMethodNonPublic     diagnostic.Code = "resource-method-non-public"
	CodeResourceMultipleEntities    diagnostic.Code = "resource-method-multiple-entity-params"
	CodeResourceNoPublicConstructor diagnostic.Code = "resource-no-public-constructor"

	CodePersistenceFinalMethods       diagnostic.Code = "persistence-final-methods"
	CodePersistenceFinalVariables     diagnostic.Code = "persistence-final-variables"
	CodePersistenceFinalClass         diagnostic.Code = "persistence-final-class"
	CodePersistenceMissingConstructor diagnostic.Code = "persistence-missing-empty-constructor"
	CodePersistenceInvalidAnnotation  diagnostic.Code = "persistence-invalid-annotation"
	CodePersistenceMissingAttributes  diagnostic.Code = "persistence-missing-attributes"

	CodeManagedBeanFieldScope  diagnostic.Code = "managed-bean-field-scope"
	CodeManagedBeanConstructor diagnostic.Code = "managed-bean-constructor"
	CodeManagedBeanFinalClass  diagnostic.Code = "managed-bean-final-class"
	CodeProducesInjectConflict diagnostic.Code = "produces-inject-conflict"
	CodeInvalidInjectParam     diagnostic.Code = "invalid-inject-param"
	CodeInvalidProducesParam   diagnostic.Code = "invalid-produces-param"
	CodeScopeDeclaration       diagnostic.Code = "scope-declaration"

	CodeBeanValidationStatic      diagnostic.Code = "bean-validation-static"
	CodeBeanValidationInvalidType diagnostic.Code = "bean-validation-invalid-type"

	CodeJsonbTransientField   diagnostic.Code = "jsonb-transient-field"
	CodeJsonbMultipleCreators diagnostic.Code = "jsonb-multiple-creators"

	CodeWebSocketPathParams diagnostic.Code = "websocket-path-params-annotation"

	CodeServletHTTPServlet      diagnostic.Code = "servlet-extend-http-servlet"
	CodeServletFilter           diagnostic.Code = "servlet-implement-filter"
	CodeServletListener         diagnostic.Code = "servlet-implement-listener"
	CodeServletMissingAttribute diagnostic.Code = "servlet-missing-attribute"
	CodeServletDuplicateAttrs   diagnostic.Code = "servlet-duplicate-attributes"
	CodeFilterMissingAttribute  diagnostic.Code = "filter-missing-attribute"
	CodeFilterDuplicateAttrs    diagnostic.Code = "filter-duplicate-attributes"
)

// Provider ids
const (
	RemoveInjectAnnotation         fix.ProviderID = "remove-inject-annotation"
	RemoveProducesAnnotation       fix.ProviderID = "remove-produces-annotation"
	RemovePostConstructAnnotation  fix.ProviderID = "remove-postconstruct-annotation"
	RemovePreDestroyAnnotation     fix.ProviderID = "remove-predestroy-annotation"
	RemoveJsonbTransientAnnotation fix.ProviderID = "remove-jsonb-transient-annotation"
	RemoveJsonbAnnotations         fix.ProviderID = "remove-jsonb-annotations"
	RemoveJsonbCreatorAnnotation   fix.ProviderID = "remove-jsonb-creator-annotation"
	RemoveMapKeyAnnotations        fix.ProviderID = "remove-mapkey-annotations"
	RemoveInvalidParamAnnotations  fix.ProviderID = "remove-invalid-param-annotations"
	RemoveFinalModifier            fix.ProviderID = "remove-final-modifier"
	RemoveStaticModifier           fix.ProviderID = "remove-static-modifier"
	RemoveAbstractModifier         fix.ProviderID = "remove-abstract-modifier"
	RemoveMethodParameters         fix.ProviderID = "remove-method-parameters"
	ChangeReturnTypeVoid           fix.ProviderID = "change-return-type-void"
	MakeMethodPublic               fix.ProviderID = "make-method-public"
	AddNoArgConstructor            fix.ProviderID = "add-no-arg-constructor"
	AddPublicNoArgConstructor      fix.ProviderID = "add-public-no-arg-constructor"
	InsertInjectAnnotation         fix.ProviderID = "insert-inject-annotation"
	ReplaceScopeWithDependent      fix.ProviderID = "replace-scope-with-dependent"
	RemoveConflictingScopes        fix.ProviderID = "remove-conflicting-scopes"
	RemoveConstraintAnnotation     fix.ProviderID = "remove-constraint-annotation"
	AddResourceName                fix.ProviderID = "add-resource-name"
	AddResourceType                fix.ProviderID = "add-resource-type"
	AddPathParam                   fix.ProviderID = "add-path-param"
	RemoveExtraEntityParams        fix.ProviderID = "remove-extra-entity-params"

	ExtendHTTPServlet            fix.ProviderID = "extend-http-servlet"
	ImplementFilter              fix.ProviderID = "implement-filter"
	ImplementListener            fix.ProviderID = "implement-listener"
	CompleteWebServletAnnotation fix.ProviderID = "complete-webservlet-annotation"
	CompleteWebFilterAnnotation  fix.ProviderID = "complete-webfilter-annotation"
	CompleteMapKeyJoinColumn     fix.ProviderID = "complete-mapkeyjoincolumn"
)

// Providers returns every Jakarta fix provider
func Providers() []fix.Provider {
	return []fix.Provider{
		removeAnnotation{id: RemoveInjectAnnotation, names: []string{Inject}},
		removeAnnotation{id: RemoveProducesAnnotation, names: []string{Produces}},
		removeAnnotation{id: RemovePostConstructAnnotation, names: []string{PostConstruct}},
		removeAnnotation{id: RemovePreDestroyAnnotation, names: []string{PreDestroy}},
		removeAnnotation{id: RemoveJsonbTransientAnnotation, names: []string{JsonbTransient}},
		removeAnnotation{id: RemoveJsonbAnnotations, family: "Jsonb", except: []string{JsonbTransient}, mode: removeAll},
		removeAnnotation{id: RemoveJsonbCreatorAnnotation, names: []string{JsonbCreator}},
		removeAnnotation{id: RemoveMapKeyAnnotations, names: []string{MapKeyClass, MapKey}, mode: removeEach},
		removeInvalidParamAnnotations{},
		removeModifier{id: RemoveFinalModifier, keyword: "final"},
		removeModifier{id: RemoveStaticModifier, keyword: "static"},
		removeModifier{id: RemoveAbstractModifier, keyword: "abstract"},
		removeMethodParameters{},
		changeReturnTypeVoid{},
		makeMethodPublic{},
		addNoArgConstructor{id: AddNoArgConstructor, access: []string{"protected", "public"}},
		addNoArgConstructor{id: AddPublicNoArgConstructor, access: []string{"public"}},
		insertInject{},
		replaceScopeWithDependent{},
		removeConflictingScopes{},
		removeConstraint{},
		addResourceAttribute{id: AddResourceName, attribute: "name", value: `""`},
		addResourceAttribute{id: AddResourceType, attribute: "type", value: "Object.class"},
		addPathParam{},
		removeExtraEntityParams{},

		serverFix{id: ExtendHTTPServlet, titles: supertypeTitles("extend", "HttpServlet")},
		serverFix{id: ImplementFilter, titles: supertypeTitles("implement", "Filter")},
		serverFix{id: ImplementListener, titles: supertypeTitles("implement",
			"ServletContextListener",
			"ServletContextAttributeListener",
			"ServletRequestListener",
			"ServletRequestAttributeListener",
			"HttpSessionListener",
			"HttpSessionAttributeListener",
			"HttpSessionIdListener",
		)},
		serverFix{id: CompleteWebServletAnnotation, titles: attributeTitles("WebServlet", CodeServletMissingAttribute,
			[]string{"urlPatterns", "value"}, []string{"urlPatterns", "value"})},
		serverFix{id: CompleteWebFilterAnnotation, titles: attributeTitles("WebFilter", CodeFilterMissingAttribute,
			[]string{"urlPatterns", "servletNames", "value"}, []string{"urlPatterns", "value"})},
		serverFix{id: CompleteMapKeyJoinColumn, titles: fixedTitles("Add the missing attributes to the @MapKeyJoinColumn annotation")},
	}
}

type rule struct {
	code      diagnostic.Code
	providers []fix.ProviderID
}

var rules = []rule{
	{CodeInjectFinal, []fix.ProviderID{RemoveInjectAnnotation, RemoveFinalModifier}},
	{CodeInjectConstructor, []fix.ProviderID{RemoveInjectAnnotation}},
	{CodeInjectGeneric, []fix.ProviderID{RemoveInjectAnnotation}},
	{CodeInjectAbstract, []fix.ProviderID{RemoveInjectAnnotation, RemoveAbstractModifier}},
	{CodeInjectStatic, []fix.ProviderID{RemoveInjectAnnotation, RemoveStaticModifier}},

	{CodePostConstructParams, []fix.ProviderID{RemovePostConstructAnnotation, RemoveMethodParameters}},
	{CodePostConstructReturnType, []fix.ProviderID{ChangeReturnTypeVoid}},
	{CodePreDestroyStatic, []fix.ProviderID{RemovePreDestroyAnnotation, RemoveStaticModifier}},
	{CodePreDestroyParams, []fix.ProviderID{RemovePreDestroyAnnotation, RemoveMethodParameters}},
	{CodeResourceMissingName, []fix.ProviderID{AddResourceName}},
	{CodeResourceMissingType, []fix.ProviderID{AddResourceType}},

	{CodeResourceMethodNonPublic, []fix.ProviderID{MakeMethodPublic}},
	{CodeResourceMultipleEntities, []fix.ProviderID{RemoveExtraEntityParams}},
	{CodeResourceNoPublicConstructor, []fix.ProviderID{AddPublicNoArgConstructor}},

	{CodePersistenceFinalMethods, []fix.ProviderID{RemoveFinalModifier}},
	{CodePersistenceFinalVariables, []fix.ProviderID{RemoveFinalModifier}},
	{CodePersistenceFinalClass, []fix.ProviderID{RemoveFinalModifier}},
	{CodePersistenceMissingConstructor, []fix.ProviderID{AddNoArgConstructor}},
	{CodePersistenceInvalidAnnotation, []fix.ProviderID{RemoveMapKeyAnnotations}},
	{CodePersistenceMissingAttributes, []fix.ProviderID{CompleteMapKeyJoinColumn}},

	{CodeManagedBeanFieldScope, []fix.ProviderID{ReplaceScopeWithDependent}},
	{CodeManagedBeanConstructor, []fix.ProviderID{InsertInjectAnnotation, AddNoArgConstructor}},
	{CodeManagedBeanFinalClass, []fix.ProviderID{RemoveFinalModifier}},
	{CodeProducesInjectConflict, []fix.ProviderID{RemoveProducesAnnotation, RemoveInjectAnnotation}},
	{CodeInvalidInjectParam, []fix.ProviderID{RemoveInjectAnnotation, RemoveInvalidParamAnnotations}},
	{CodeInvalidProducesParam, []fix.ProviderID{RemoveProducesAnnotation, RemoveInvalidParamAnnotations}},
	{CodeScopeDeclaration, []fix.ProviderID{RemoveConflictingScopes}},

	{CodeBeanValidationStatic, []fix.ProviderID{RemoveConstraintAnnotation, RemoveStaticModifier}},
	{CodeBeanValidationInvalidType, []fix.ProviderID{RemoveConstraintAnnotation}},

	{CodeJsonbTransientField, []fix.ProviderID{RemoveJsonbTransientAnnotation, RemoveJsonbAnnotations}},
	{CodeJsonbMultipleCreators, []fix.ProviderID{RemoveJsonbCreatorAnnotation}},

	{CodeWebSocketPathParams, []fix.ProviderID{AddPathParam}},

	{CodeServletHTTPServlet, []fix.ProviderID{ExtendHTTPServlet}},
	{CodeServletFilter, []fix.ProviderID{ImplementFilter}},
	{CodeServletListener, []fix.ProviderID{ImplementListener}},
	{CodeServletMissingAttribute, []fix.ProviderID{CompleteWebServletAnnotation}},
	{CodeServletDuplicateAttrs, []fix.ProviderID{CompleteWebServletAnnotation}},
	{CodeFilterMissingAttribute, []fix.ProviderID{CompleteWebFilterAnnotation}},
	{CodeFilterDuplicateAttrs, []fix.ProviderID{CompleteWebFilterAnnotation}},
}

// Register installs the Jakarta rule table and its providers
func Register(b *catalog.Builder, r *fix.RegistryBuilder) error {
	for _, rule := range rules {
		if err := b.Register(rule.code, rule.providers...); err != nil {
			return err
		}
	}
	r.Register(Providers()...)
	return nil
}
